package checks

import (
	"context"
	"fmt"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/host"
	"mailstack/internal/probe"
)

// minimumMajor lists supported distributions and their oldest supported major
// release.
var minimumMajor = map[string]int{
	"debian":    11,
	"ubuntu":    22,
	"almalinux": 8,
	"rocky":     8,
	"alpine":    3,
}

type OSReleaseCheck struct{}

func (c *OSReleaseCheck) ID() string {
	return "os-release"
}

func (c *OSReleaseCheck) Title() string {
	return "Supported Operating System"
}

func (c *OSReleaseCheck) Description() string {
	return "Compares /etc/os-release against the supported distribution table (debian 11, ubuntu 22, almalinux 8, rocky 8, alpine 3 or newer)."
}

func (c *OSReleaseCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepOSRelease}
}

func (c *OSReleaseCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	rel, res := fact[*models.OSRelease](dc, c.ID(), data.DepOSRelease)
	if res != nil {
		return *res, nil
	}
	if !rel.Found {
		return probe.Warn(c.ID(), host.OSReleasePath+" not found; distribution unknown").WithCause(probe.CauseOSUnsupported), nil
	}

	name := rel.PrettyName
	if name == "" {
		name = rel.ID + " " + rel.VersionID
	}

	minimum, known := minimumMajor[rel.ID]
	if !known {
		return probe.Warn(c.ID(), fmt.Sprintf("%s is not a tested distribution", name)).
			WithCause(probe.CauseOSUnsupported).
			WithEvidence("id", rel.ID), nil
	}
	major, ok := host.OSRelease{VersionID: rel.VersionID}.Major()
	if !ok || major < minimum {
		return probe.Warn(c.ID(), fmt.Sprintf("%s is older than the supported minimum %s %d", name, rel.ID, minimum)).
			WithCause(probe.CauseOSUnsupported).
			WithEvidence("id", rel.ID).
			WithEvidence("version_id", rel.VersionID), nil
	}
	return probe.Pass(c.ID(), name).WithEvidence("id", rel.ID).WithEvidence("version_id", rel.VersionID), nil
}

func init() {
	probe.Register(&OSReleaseCheck{})
}
