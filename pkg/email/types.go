package email

// Message is one outbound email. Builders in templates.go produce these;
// the client only validates and sends them. A message needs at least one
// recipient, a subject, and one body part. When both bodies are set the
// text part is the fallback for clients that reject HTML.
type Message struct {
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	TextBody string
	HTMLBody string
}
