package authz

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"crm-system/internal/entities"
)

// ToID coerces the id representations found in the data (numbers, numeric
// strings, pointers) into one numeric form.
func ToID(v interface{}) (uint64, bool) {
	switch id := v.(type) {
	case nil:
		return 0, false
	case uint64:
		return id, true
	case *uint64:
		if id == nil {
			return 0, false
		}
		return *id, true
	case uint:
		return uint64(id), true
	case uint32:
		return uint64(id), true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint64(id), true
	case int32:
		if id < 0 {
			return 0, false
		}
		return uint64(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return uint64(id), true
	case *int64:
		if id == nil {
			return 0, false
		}
		return ToID(*id)
	case float64:
		if id < 0 || id != math.Trunc(id) {
			return 0, false
		}
		return uint64(id), true
	case json.Number:
		return ToID(id.String())
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case *string:
		if id == nil {
			return 0, false
		}
		return ToID(*id)
	}
	return 0, false
}

// SameID compares two ids after numeric coercion of both operands.
// Missing or unparsable ids never match.
func SameID(a, b interface{}) bool {
	x, okA := ToID(a)
	y, okB := ToID(b)
	return okA && okB && x == y
}

func sameTenant(actor *entities.User, clientID uint64) bool {
	return actor != nil && actor.ClientID == clientID
}

// ownsRecord is the agent rule shared by leads and tasks.
func ownsRecord(actor *entities.User, assignedTo, createdBy interface{}) bool {
	return SameID(assignedTo, actor.ID) || SameID(createdBy, actor.ID)
}

// CanAccessLead: admin and manager see every lead of their tenant, an agent
// only leads assigned to or created by them.
func CanAccessLead(actor *entities.User, lead *entities.Lead) bool {
	if actor == nil || lead == nil || !sameTenant(actor, lead.ClientID) {
		return false
	}
	switch actor.Role {
	case entities.RoleAdmin, entities.RoleManager:
		return true
	case entities.RoleAgent:
		return ownsRecord(actor, lead.AssignedTo, lead.CreatedBy)
	}
	return false
}

func CanAccessTask(actor *entities.User, task *entities.Task) bool {
	if actor == nil || task == nil || !sameTenant(actor, task.ClientID) {
		return false
	}
	switch actor.Role {
	case entities.RoleAdmin, entities.RoleManager:
		return true
	case entities.RoleAgent:
		return ownsRecord(actor, task.AssignedTo, task.CreatedBy)
	}
	return false
}

// CanAccessEvent: events are personal; admins see the whole tenant calendar.
func CanAccessEvent(actor *entities.User, event *entities.CalendarEvent) bool {
	if actor == nil || event == nil || !sameTenant(actor, event.ClientID) {
		return false
	}
	return actor.IsAdmin() || SameID(event.UserID, actor.ID)
}

// CanAssignLead decides whether actor may set assigned_to to assignee.
// Agents can only keep leads on themselves.
func CanAssignLead(actor *entities.User, assignee interface{}) bool {
	if actor == nil {
		return false
	}
	if _, ok := ToID(assignee); !ok {
		return true
	}
	if actor.IsAgent() {
		return SameID(assignee, actor.ID)
	}
	return true
}

// CanManageUser applies the user-management rules:
// admin anything in the tenant; manager views anyone, writes agents and
// their own profile; agent views and updates only themselves.
func CanManageUser(actor, target *entities.User, action string) bool {
	if actor == nil || target == nil || !sameTenant(actor, target.ClientID) {
		return false
	}
	self := SameID(actor.ID, target.ID)
	switch actor.Role {
	case entities.RoleAdmin:
		return true
	case entities.RoleManager:
		if action == ActionView {
			return true
		}
		if self {
			return action == ActionUpdate
		}
		return target.Role == entities.RoleAgent
	case entities.RoleAgent:
		return self && (action == ActionView || action == ActionUpdate)
	}
	return false
}

// CanAssignRole reports whether actor may create or promote a user into role.
func CanAssignRole(actor *entities.User, role entities.Role) bool {
	if actor == nil || !role.Valid() {
		return false
	}
	switch actor.Role {
	case entities.RoleAdmin:
		return true
	case entities.RoleManager:
		return role == entities.RoleAgent
	}
	return false
}

// CanDo dispatches on the target type. Services call it for every
// single-record check; list queries use the scopes in scope.go instead.
func CanDo(actor *entities.User, action string, target interface{}) bool {
	switch t := target.(type) {
	case *entities.Lead:
		return CanAccessLead(actor, t)
	case *entities.Task:
		return CanAccessTask(actor, t)
	case *entities.CalendarEvent:
		return CanAccessEvent(actor, t)
	case *entities.User:
		return CanManageUser(actor, t, action)
	}
	return false
}
