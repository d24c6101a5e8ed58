package client

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Token is the opaque session credential issued by the backend. It is forwarded on every request
// and persisted between runs, but its contents are never interpreted by the client.
type Token struct {
	cookies map[string]string
}

func (t Token) IsZero() bool {
	return len(t.cookies) == 0
}

// String never reveals the credential.
func (t Token) String() string {
	if t.IsZero() {
		return "Token(none)"
	}
	return "Token(redacted)"
}

func (t Token) MarshalText() ([]byte, error) {
	raw, err := json.Marshal(t.cookies)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return []byte(base64.StdEncoding.EncodeToString(raw)), nil
}

func (t *Token) UnmarshalText(text []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return errors.Wrap(err, "malformed token")
	}
	cookies := map[string]string{}
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return errors.Wrap(err, "malformed token")
	}
	t.cookies = cookies
	return nil
}

func (t Token) clone() Token {
	if t.IsZero() {
		return Token{}
	}
	cookies := make(map[string]string, len(t.cookies))
	for k, v := range t.cookies {
		cookies[k] = v
	}
	return Token{cookies: cookies}
}

func (t Token) equal(o Token) bool {
	if len(t.cookies) != len(o.cookies) {
		return false
	}
	for k, v := range t.cookies {
		if o.cookies[k] != v {
			return false
		}
	}
	return true
}

// TokenJar holds the credential of one client context. Connections attach it to outgoing requests
// and update it from Set-Cookie headers of responses.
type TokenJar struct {
	mu       sync.Mutex
	token    Token
	onChange func(Token)
	now      func() time.Time
}

func NewTokenJar(initial Token) *TokenJar {
	return &TokenJar{token: initial.clone(), now: time.Now}
}

// OnChange registers fn to be called with the new token whenever the jar's content changes.
func (j *TokenJar) OnChange(fn func(Token)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onChange = fn
}

func (j *TokenJar) Get() Token {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.token.clone()
}

func (j *TokenJar) Set(t Token) {
	j.update(func(Token) Token { return t.clone() })
}

func (j *TokenJar) Clear() {
	j.Set(Token{})
}

// Attach adds the credential to req.
func (j *TokenJar) Attach(req *http.Request) {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.token.cookies))
	for name := range j.token.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: j.token.cookies[name]})
	}
}

// Capture applies the Set-Cookie headers of resp. Expired or emptied cookies are removed.
func (j *TokenJar) Capture(resp *http.Response) {
	set := resp.Cookies()
	if len(set) == 0 {
		return
	}
	j.update(func(current Token) Token {
		next := current.clone()
		if next.cookies == nil {
			next.cookies = map[string]string{}
		}
		for _, c := range set {
			if c.Value == "" || c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(j.now())) {
				delete(next.cookies, c.Name)
				continue
			}
			next.cookies[c.Name] = c.Value
		}
		if len(next.cookies) == 0 {
			return Token{}
		}
		return next
	})
}

func (j *TokenJar) update(f func(Token) Token) {
	j.mu.Lock()
	next := f(j.token)
	changed := !next.equal(j.token)
	j.token = next
	onChange := j.onChange
	j.mu.Unlock()
	if changed && onChange != nil {
		onChange(next.clone())
	}
}
