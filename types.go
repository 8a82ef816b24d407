package gauntlet

// Message is one turn of oracle history. The impersonated human speaks as
// "assistant"; the system under test speaks as "user". A history never
// includes the system preamble.
type Message struct {
	Role    string
	Content string
}

// CallOptions are the per-run model settings taken from the scenario.
type CallOptions struct {
	Temperature float64
	// Model is empty when the scenario uses the backend's default.
	Model string
}
