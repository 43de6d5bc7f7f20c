package rbac

const (
	GateRole       = "role"
	GatePermission = "permission"
)

// Decision is the outcome of a gate. Missing lists what the caller lacked:
// the required roles for a role gate, the absent permissions for a
// permission gate.
type Decision struct {
	Gate    string
	Allowed bool
	Missing []string
}

// RoleGate allows when the caller holds at least one of the required roles.
// An empty requirement allows.
func RoleGate(held map[string]struct{}, required ...string) Decision {
	if len(required) == 0 {
		return Decision{Gate: GateRole, Allowed: true}
	}
	for _, r := range required {
		if _, ok := held[r]; ok {
			return Decision{Gate: GateRole, Allowed: true}
		}
	}
	missing := make([]string, len(required))
	copy(missing, required)
	return Decision{Gate: GateRole, Missing: missing}
}

// PermissionGate allows only when every required permission is held.
func PermissionGate(held map[string]struct{}, required ...string) Decision {
	var missing []string
	for _, p := range required {
		if _, ok := held[p]; !ok {
			missing = append(missing, p)
		}
	}
	return Decision{Gate: GatePermission, Allowed: len(missing) == 0, Missing: missing}
}
