package observability

// MetricKey names one registered instrument.
type MetricKey string

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"

	// Saga bookkeeping. Inconsistencies count captured payments whose stock was never
	// decremented; aborts count terminal failures per stage and error kind.
	MSagaInconsistencies MetricKey = "saga_inconsistencies_total"
	MSagaStageAborts     MetricKey = "saga_stage_aborts_total"
	MSagaEvents          MetricKey = "saga_events_total"
)

// MetricSpec describes how a MetricKey is registered with a backend.
type MetricSpec struct {
	Key     MetricKey
	Help    string
	Labels  []string
	Buckets []float64
}

// Counters lists every counter the orchestrator emits.
var Counters = []MetricSpec{
	{Key: MUsecaseRequests, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MHTTPRequests, Help: "Total number of HTTP requests served.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Help: "Total number of calls to downstream peers.", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MSagaInconsistencies, Help: "Orders left inconsistent after payment capture.", Labels: []string{"reason"}},
	{Key: MSagaStageAborts, Help: "Order sagas aborted, by stage and failure kind.", Labels: []string{"stage", "kind"}},
	{Key: MSagaEvents, Help: "Saga outcome events handled by the event worker.", Labels: []string{"event", "outcome"}},
}

// Histograms lists every histogram the orchestrator emits. Nil buckets mean backend defaults.
var Histograms = []MetricSpec{
	{Key: MUsecaseDuration, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequestDuration, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequestDuration, Help: "Duration of downstream calls in seconds.", Labels: []string{"peer", "endpoint"}},
}
