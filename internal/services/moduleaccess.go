package services

import (
	"fmt"
	"strings"

	"github.com/tdcon/workplatform/internal/models"
	"gorm.io/gorm"
)

const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleUser      = "user"
)

const (
	ModulePersonal = "personal"
	ModuleWork     = "work"
	ModuleTickets  = "tickets"
	ModuleAssets   = "assets"
	ModuleAdmin    = "admin"
)

var ModuleNames = []string{ModulePersonal, ModuleWork, ModuleTickets, ModuleAssets, ModuleAdmin}

var RoleNames = []string{RoleAdmin, RoleDeveloper, RoleUser}

// Role defaults applied when no override row exists.
var defaultModuleAccess = map[string]map[string]bool{
	RoleAdmin:     {ModulePersonal: true, ModuleWork: true, ModuleTickets: true, ModuleAssets: true, ModuleAdmin: true},
	RoleDeveloper: {ModulePersonal: true, ModuleWork: true, ModuleTickets: true, ModuleAssets: true, ModuleAdmin: false},
	RoleUser:      {ModulePersonal: true, ModuleWork: true, ModuleTickets: true, ModuleAssets: false, ModuleAdmin: false},
}

func NormalizeRole(value string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(value))
	for _, known := range RoleNames {
		if role == known {
			return role, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("role must be %s", strings.Join(RoleNames, "|")))
}

func NormalizeModule(value string) (string, error) {
	module := strings.ToLower(strings.TrimSpace(value))
	for _, known := range ModuleNames {
		if module == known {
			return module, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("module must be %s", strings.Join(ModuleNames, "|")))
}

// ModuleAccessMap resolves the effective module flags for a role: defaults
// overlaid with stored overrides. Admins never lose the admin module.
func ModuleAccessMap(db *gorm.DB, roleName string) (map[string]bool, error) {
	role, err := NormalizeRole(roleName)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(ModuleNames))
	for _, module := range ModuleNames {
		enabled := true
		if defaults, ok := defaultModuleAccess[role]; ok {
			enabled = defaults[module]
		}
		result[module] = enabled
	}

	var rows []models.RoleModuleAccess
	if err := db.Where("role = ?", role).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, known := result[row.Module]; known {
			result[row.Module] = row.Enabled
		}
	}

	if role == RoleAdmin {
		result[ModuleAdmin] = true
	}
	return result, nil
}

// IsModuleEnabled is the authorization predicate consulted before every
// module-gated operation.
func IsModuleEnabled(db *gorm.DB, roleName, moduleName string) (bool, error) {
	module, err := NormalizeModule(moduleName)
	if err != nil {
		return false, err
	}
	access, err := ModuleAccessMap(db, roleName)
	if err != nil {
		return false, err
	}
	return access[module], nil
}
