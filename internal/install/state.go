// Package install drives a mail stack from whatever the host currently has to
// a running, verified installation.
package install

import "strings"

// State is the installation state derived from live host queries. It is never
// cached or persisted.
type State string

const (
	StateAbsent          State = "ABSENT"
	StatePartial         State = "PARTIAL"
	StateCompleteStopped State = "COMPLETE_STOPPED"
	StateCompleteRunning State = "COMPLETE_RUNNING"
)

// Phase is a step on the forward installation path.
type Phase string

const (
	PhaseAbsent           Phase = "ABSENT"
	PhaseInstalledStopped Phase = "INSTALLED_STOPPED"
	PhaseConfigured       Phase = "CONFIGURED"
	PhaseVerified         Phase = "VERIFIED"
	PhaseRunning          Phase = "RUNNING"
)

// Daemon is the observed state of one managed service.
type Daemon struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
	Active    bool   `json:"active"`
}

// Inventory is what Detect found for the two managed daemons.
type Inventory struct {
	Daemons []Daemon `json:"daemons"`
}

// State classifies the inventory:
//
//	nothing installed              ABSENT
//	all installed, all active      COMPLETE_RUNNING
//	all installed, none active     COMPLETE_STOPPED
//	anything else                  PARTIAL
func (inv Inventory) State() State {
	if len(inv.Daemons) == 0 {
		return StateAbsent
	}
	installed, active := 0, 0
	for _, d := range inv.Daemons {
		if d.Installed {
			installed++
		}
		if d.Installed && d.Active {
			active++
		}
	}
	switch {
	case installed == 0:
		return StateAbsent
	case installed == len(inv.Daemons) && active == len(inv.Daemons):
		return StateCompleteRunning
	case installed == len(inv.Daemons) && active == 0:
		return StateCompleteStopped
	default:
		return StatePartial
	}
}

// AllActive reports whether every daemon is installed and active.
func (inv Inventory) AllActive() bool {
	return len(inv.Daemons) > 0 && inv.State() == StateCompleteRunning
}

// Inactive names the daemons that are not running.
func (inv Inventory) Inactive() []string {
	var out []string
	for _, d := range inv.Daemons {
		if !d.Installed || !d.Active {
			out = append(out, d.Name)
		}
	}
	return out
}

func (inv Inventory) String() string {
	parts := make([]string, 0, len(inv.Daemons))
	for _, d := range inv.Daemons {
		st := "absent"
		switch {
		case d.Installed && d.Active:
			st = "active"
		case d.Installed:
			st = "stopped"
		}
		parts = append(parts, d.Name+"="+st)
	}
	return strings.Join(parts, " ")
}
