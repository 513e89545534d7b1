package authz

import (
	sq "github.com/Masterminds/squirrel"

	"crm-system/internal/entities"
)

// denyAll matches nothing; used when the actor carries an unknown role.
var denyAll = sq.Expr("1 = 0")

// LeadScope is CanAccessLead expressed as a WHERE condition on alias.
func LeadScope(actor *entities.User, alias string) sq.Sqlizer {
	return ownershipScope(actor, alias, actor != nil && (actor.IsAdmin() || actor.IsManager()))
}

func TaskScope(actor *entities.User, alias string) sq.Sqlizer {
	return LeadScope(actor, alias)
}

// ReportScope keeps managers on their own rows.
func ReportScope(actor *entities.User, alias string) sq.Sqlizer {
	return ownershipScope(actor, alias, actor != nil && actor.IsAdmin())
}

// EventScope limits calendar queries to the actor's own events unless admin.
func EventScope(actor *entities.User, alias string) sq.Sqlizer {
	if actor == nil {
		return denyAll
	}
	tenant := sq.Eq{col(alias, "client_id"): actor.ClientID}
	if actor.IsAdmin() {
		return tenant
	}
	return sq.And{tenant, sq.Eq{col(alias, "user_id"): actor.ID}}
}

func ownershipScope(actor *entities.User, alias string, unrestricted bool) sq.Sqlizer {
	if actor == nil || !actor.Role.Valid() {
		return denyAll
	}
	tenant := sq.Eq{col(alias, "client_id"): actor.ClientID}
	if unrestricted {
		return tenant
	}
	return sq.And{
		tenant,
		sq.Or{
			sq.Eq{col(alias, "assigned_to"): actor.ID},
			sq.Eq{col(alias, "created_by"): actor.ID},
		},
	}
}

func col(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}
