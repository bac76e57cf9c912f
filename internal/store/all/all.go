// Package all registers every built-in Artifact Store backend.
package all

import (
	_ "tabjobs/internal/store/file"
	_ "tabjobs/internal/store/mssql"
	_ "tabjobs/internal/store/mysql"
	_ "tabjobs/internal/store/postgres"
	_ "tabjobs/internal/store/sqlite"
)
