package diag

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// secretKeys name settings and environment variables whose values never
// leave the host. Seal passphrases are the secret gpuguard reads itself.
var secretKeys = []string{"passphrase", "password", "secret", "token", "api[_-]?key"}

// profileRoots precede the account name in home directory paths, e.g. in
// probe fixture and log file settings.
var profileRoots = []string{`[A-Z]:\\Users\\`, `/home/`, `/Users/`}

// nvidiaUUID matches the per-board identifiers nvidia-smi and NVML report.
const nvidiaUUID = `GPU-[0-9a-fA-F]{8}(?:-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}`

// Redactor strips secrets, account names and board serials from text
// bound for a diagnostic package.
type Redactor struct {
	rules []redactionRule
}

type redactionRule struct {
	re   *regexp.Regexp
	repl string
}

// NewRedactor compiles the rules from secretKeys and profileRoots.
func NewRedactor() *Redactor {
	keys := strings.Join(secretKeys, "|")
	roots := strings.Join(profileRoots, "|")

	return &Redactor{
		rules: []redactionRule{
			// exported variables go first so the assignment rule does not rename them
			{
				re:   regexp.MustCompile(`(?i)export\s+([A-Z0-9_]*(?:key|` + keys + `)[A-Z0-9_]*)\s*=\s*["']?([^"'\s]+)["']?`),
				repl: `export $1=` + redacted,
			},
			{
				re:   regexp.MustCompile(`(?i)(^|[^A-Z_])(` + keys + `)\s*[:=]\s*["']?([^"'\s]+)["']?`),
				repl: `$1$2: ` + redacted,
			},
			// multi-word YAML values
			{
				re:   regexp.MustCompile(`(?i)(` + keys + `):\s*(.+)`),
				repl: `$1: ` + redacted,
			},
			{
				re:   regexp.MustCompile(`(?i)Bearer\s+([A-Za-z0-9_\-\.]+)`),
				repl: `Bearer ` + redacted,
			},
			{
				re:   regexp.MustCompile(`(?i)(` + roots + `)[^\\/\s"']+`),
				repl: `${1}` + redacted,
			},
			{
				re:   regexp.MustCompile(nvidiaUUID),
				repl: `GPU-` + redacted,
			},
		},
	}
}

// Redact applies every rule to input in order.
func (r *Redactor) Redact(input string) string {
	result := input
	for _, rule := range r.rules {
		result = rule.re.ReplaceAllString(result, rule.repl)
	}
	return result
}
