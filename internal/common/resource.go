package common

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ParseBytes converts a size such as "512Mi", "2G" or "1048576" into a byte count.
// Plain integers are taken as bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if q.Sign() < 0 {
		return 0, errors.Errorf("size %q must not be negative", s)
	}
	v, ok := q.AsInt64()
	if !ok {
		return 0, errors.Errorf("size %q is out of range", s)
	}
	return v, nil
}

// FormatBytes renders n using binary suffixes, e.g. 104857600 -> "100Mi".
func FormatBytes(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + "B"
	}
	return resource.NewQuantity(n, resource.BinarySI).String()
}
