package entity

// DeliveryResult is the normalized outcome of sending a code, whatever
// provider or mode produced it.
type DeliveryResult struct {
	Success   bool
	MessageID string
	Class     ErrorClass
	Attempts  int
	Err       error
}
