package secret

import (
	"os"
	"strings"
)

// EnvPrefix is prepended to the normalized key to form the variable name.
const EnvPrefix = "DATABRIDGE_SECRET_"

// EnvStore reads secrets from environment variables. A key such as
// "conn-1a2b" is looked up as DATABRIDGE_SECRET_CONN_1A2B.
type EnvStore struct {
	lookup func(string) (string, bool)
}

func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// EnvName returns the variable consulted for key.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := e.lookup(EnvName(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (e *EnvStore) Set(string, []byte) error { return ErrReadOnly }

func (e *EnvStore) Delete(string) error { return ErrReadOnly }
