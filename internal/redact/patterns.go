package redact

// Pattern is one named redaction rule. Order in a pattern list is
// significant: each rule runs over the output of the one before it,
// so specific rules go before generic catch-alls.
type Pattern struct {
	Name        string `json:"name"`
	Regex       string `json:"regex"`
	Insensitive bool   `json:"insensitive,omitempty"`
}

// PatternListVersion tracks the generated portion of the default
// list. Bumped when the corpus is regenerated offline.
const PatternListVersion = "v1.3.0"

// curatedPatterns are hand-maintained high-precision rules.
var curatedPatterns = []Pattern{
	{Name: "anthropic-api-key", Regex: `sk-ant-api\d{2}-[A-Za-z0-9_-]{95}`},
	{Name: "openai-api-key", Regex: `sk-[A-Za-z0-9]{48}`},
	{Name: "aws-access-key", Regex: `AKIA[0-9A-Z]{16}`},
	{Name: "aws-secret-key", Regex: `aws_secret_access_key\s*=\s*[A-Za-z0-9/+=]{40}`, Insensitive: true},
	{Name: "github-token", Regex: `gh[poasur]_[A-Za-z0-9]{36}`},
	{Name: "github-fine-grained-token", Regex: `github_pat_[A-Za-z0-9_]{82}`},
	{Name: "slack-token", Regex: `xox[baprs]-[0-9a-zA-Z-]{10,72}`},
	{Name: "stripe-live-key", Regex: `sk_live_[0-9a-zA-Z]{24,}`},
	{Name: "google-api-key", Regex: `AIza[0-9A-Za-z_-]{35}`},
	{Name: "sendgrid-api-key", Regex: `SG\.[A-Za-z0-9_-]{22}\.[A-Za-z0-9_-]{43}`},
	{Name: "jwt", Regex: `eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`},
	{Name: "private-key-block", Regex: `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`},
	{Name: "url-password", Regex: `://[^:/@\s]+:[^@\s]+@`},
}

// generatedPatterns is the refreshed catch-all slice. Regeneration
// is an offline concern; the list ships with the binary.
var generatedPatterns = []Pattern{
	{Name: "bearer-token", Regex: `bearer\s+[A-Za-z0-9_\-.=]{20,}`, Insensitive: true},
	{Name: "authorization-header", Regex: `authorization:\s*\S{16,}`, Insensitive: true},
	{Name: "generic-api-key", Regex: `(?:api[_-]?key|apikey|secret[_-]?key|access[_-]?token)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-./+=]{16,}`, Insensitive: true},
	{Name: "generic-password", Regex: `(?:password|passwd|pwd)["']?\s*[:=]\s*["']?[^\s"',;]{8,}`, Insensitive: true},
	{Name: "npm-token", Regex: `npm_[A-Za-z0-9]{36}`},
	{Name: "pypi-token", Regex: `pypi-[A-Za-z0-9_-]{50,}`},
	{Name: "hex-secret-64", Regex: `\b[0-9a-f]{64}\b`, Insensitive: true},
}

// DefaultPatterns returns the full default list, curated rules
// first.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, 0, len(curatedPatterns)+len(generatedPatterns))
	out = append(out, curatedPatterns...)
	out = append(out, generatedPatterns...)
	return out
}
