package client

import (
	"fmt"
	"net/url"
)

const (
	pathLogin         = "api/auth/login"
	pathLogout        = "api/auth/logout"
	pathVerifyOTP     = "api/auth/verify-otp"
	pathVerify2FA     = "api/auth/verify-2fa"
	pathRefresh       = "api/auth/refresh"
	pathProfile       = "api/users/profile"
	pathWorkspaces    = "api/dms/workspaces"
	pathSearch        = "api/dms/workspaces/search"
	pathTrash         = "api/dms/workspaces/trash/user"
	pathRestore       = "api/dms/workspaces/restore"
	pathExport        = "api/dms/documents/export"
	defaultExportType = "pdf"
)

func projectPath(id string) string {
	return pathWorkspaces + "/" + url.PathEscape(id)
}

func permanentDeletePath(id string) string {
	return projectPath(id) + "/permanent"
}

func restorePath(id string) string {
	return pathRestore + "/" + url.PathEscape(id)
}

func trashPath(page, limit int) string {
	return fmt.Sprintf("%s?page=%d&limit=%d", pathTrash, page, limit)
}

func exportPath(id, format string) string {
	if format == "" {
		format = defaultExportType
	}
	return pathExport + "/" + url.PathEscape(id) + "?format=" + url.QueryEscape(format)
}
