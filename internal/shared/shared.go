package shared

import "fmt"

// Result is the outcome of one interface lookup, as printed by the CLI.
type Result struct {
	Destination string `json:"destination,omitempty"` // Destination as given on the command line
	RemoteIP    string `json:"remote_ip,omitempty"`   // Resolved destination address
	Name        string `json:"name,omitempty"`        // PTR name of the destination address
	LocalIP     string `json:"local_ip,omitempty"`    // Local address the lookup was bound to
	Interface   string `json:"interface"`             // Outgoing interface name
	MTU         uint   `json:"mtu"`                   // Interface MTU
	MSS         uint16 `json:"mss"`                   // TCP MSS derived from the MTU
}

// Target describes what was looked up, for text output and logs.
func (r Result) Target() string {
	host := r.Destination
	if host == "" || host == r.RemoteIP {
		host = r.Name
	}
	switch {
	case r.RemoteIP != "" && host != "":
		return fmt.Sprintf("%s (%s)", host, r.RemoteIP)
	case r.RemoteIP != "":
		return r.RemoteIP
	case r.LocalIP != "":
		return "local " + r.LocalIP
	default:
		return r.Destination
	}
}
