package testutil

// FixedRunToken generates the same run token every time.
//
// This keeps frame logs and golden traces byte-identical between runs.
// Unlike driver.FixedGenerator, which returns tokens in sequence and panics
// when exhausted, this generator can back any number of drivers.
//
// Thread-safety: FixedRunToken is stateless and safe for concurrent use.
type FixedRunToken struct {
	token string
}

// NewFixedRunToken creates a fixed run token generator.
// If token is empty, Generate() returns "test-run-default".
func NewFixedRunToken(token string) *FixedRunToken {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunToken{token: token}
}

// Generate returns the fixed run token.
// Implements driver.RunTokenGenerator.
func (g *FixedRunToken) Generate() string {
	return g.token
}
