package provision

import (
	"regexp"
	"strings"
	"time"

	"mailstack/internal/errs"
)

// Params are the operator-supplied inputs shared by both flavors.
type Params struct {
	Hostname string
	Timezone string
	Domain   string
}

var domainPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*\.[A-Za-z]{2,63}$`)

// ValidateHostname accepts a fully qualified name: at least one interior dot
// and no trailing dot.
func ValidateHostname(hostname string) error {
	const op = "validate hostname"
	switch {
	case hostname == "":
		return errs.Validation(op, "hostname must not be empty")
	case strings.HasSuffix(hostname, "."):
		return errs.Validation(op, "hostname %q must not end with a dot", hostname)
	case strings.HasPrefix(hostname, "."):
		return errs.Validation(op, "hostname %q must not start with a dot", hostname)
	case !strings.Contains(hostname, "."):
		return errs.Validation(op, "hostname %q is not fully qualified (expected e.g. mail.example.com)", hostname)
	case !domainPattern.MatchString(hostname):
		return errs.Validation(op, "hostname %q contains invalid labels", hostname)
	}
	return nil
}

// ValidateTimezone requires a zone known to the host tz database.
func ValidateTimezone(tz string) error {
	const op = "validate timezone"
	if strings.TrimSpace(tz) == "" {
		return errs.Validation(op, "timezone must not be empty")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errs.Validation(op, "unknown timezone %q", tz).
			WithRemediation("timedatectl list-timezones")
	}
	return nil
}

func ValidateDomain(domain string) error {
	if !domainPattern.MatchString(domain) {
		return errs.Validation("validate domain", "domain %q is not of the form label.tld", domain)
	}
	return nil
}

// ComposeParams validates the compose flavor inputs and derives the mail
// domain by dropping the first hostname label.
func ComposeParams(hostname, tz string) (Params, error) {
	if err := ValidateHostname(hostname); err != nil {
		return Params{}, err
	}
	if err := ValidateTimezone(tz); err != nil {
		return Params{}, err
	}
	_, domain, _ := strings.Cut(hostname, ".")
	return Params{Hostname: hostname, Timezone: tz, Domain: domain}, nil
}

// NativeParams validates the native flavor inputs. The mail host is always
// "mail." + domain.
func NativeParams(domain, tz string) (Params, error) {
	if err := ValidateDomain(domain); err != nil {
		return Params{}, err
	}
	if err := ValidateTimezone(tz); err != nil {
		return Params{}, err
	}
	return Params{Hostname: "mail." + domain, Timezone: tz, Domain: domain}, nil
}
