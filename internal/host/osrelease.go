package host

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// OSReleasePath is the freedesktop os-release location.
const OSReleasePath = "/etc/os-release"

// OSRelease is the subset of os-release the pipeline branches on.
type OSRelease struct {
	ID         string
	IDLike     []string
	VersionID  string
	PrettyName string
}

// ParseOSRelease parses os-release content. The file is shell-compatible
// key=value, which godotenv reads without sourcing anything.
func ParseOSRelease(content []byte) (OSRelease, error) {
	m, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return OSRelease{}, fmt.Errorf("parse os-release: %w", err)
	}
	rel := OSRelease{
		ID:         strings.ToLower(strings.TrimSpace(m["ID"])),
		VersionID:  strings.TrimSpace(m["VERSION_ID"]),
		PrettyName: strings.TrimSpace(m["PRETTY_NAME"]),
	}
	if like := strings.TrimSpace(m["ID_LIKE"]); like != "" {
		rel.IDLike = strings.Fields(strings.ToLower(like))
	}
	return rel, nil
}

// Major returns the leading numeric component of VERSION_ID ("22.04" -> 22,
// "3.19.1" -> 3).
func (r OSRelease) Major() (int, bool) {
	v := r.VersionID
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
