package internaldefs

import (
	"github.com/MrEthical07/authclient"
)

// CounterDef names one authclient counter for export.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one authclient histogram for export.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for Manager.AuditDropped.
const (
	AuditDroppedName = "authclient_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful sign-ins."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed sign-ins."},
	{ID: authclient.MetricAdminLoginSuccess, Name: "authclient_admin_login_success_total", Help: "Successful administrator sign-ins."},
	{ID: authclient.MetricAdminLoginFailure, Name: "authclient_admin_login_failure_total", Help: "Failed administrator sign-ins."},
	{ID: authclient.MetricRegisterSuccess, Name: "authclient_register_success_total", Help: "Accounts registered."},
	{ID: authclient.MetricRegisterFailure, Name: "authclient_register_failure_total", Help: "Failed registrations."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Sign-outs."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful credential refreshes."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Refreshes that terminated the session."},
	{ID: authclient.MetricRefreshCoalesced, Name: "authclient_refresh_coalesced_total", Help: "Refresh callers that shared an exchange in flight."},
	{ID: authclient.MetricForcedTermination, Name: "authclient_forced_termination_total", Help: "Sessions ended because the backend rejected the credentials."},
	{ID: authclient.MetricSessionHydrated, Name: "authclient_session_hydrated_total", Help: "Sessions restored from the store."},
	{ID: authclient.MetricSessionDiscarded, Name: "authclient_session_discarded_total", Help: "Persisted sessions discarded as unusable."},
	{ID: authclient.MetricStoreWriteFailure, Name: "authclient_store_write_failure_total", Help: "Failed session store writes."},
	{ID: authclient.MetricStaleResultDiscarded, Name: "authclient_stale_result_discarded_total", Help: "Backend results dropped because the session changed while in flight."},
	{ID: authclient.MetricThrottled, Name: "authclient_throttled_total", Help: "Requests refused by the client-side throttle."},
	{ID: authclient.MetricRequest, Name: "authclient_request_total", Help: "Requests sent to the backend."},
	{ID: authclient.MetricRequestNetworkError, Name: "authclient_request_network_error_total", Help: "Requests that got no response."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "Backend request latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the histogram buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
