package types

// Message is one rendered notification for one receiver.
type Message struct {
	Template string
	To       string
	Subject  string
	Body     string
}
