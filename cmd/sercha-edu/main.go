package main

// @title           Sercha Edu API
// @version         1.0
// @description     Study material search and learning API. Documents are ingested per subject into a vector index and served through semantic search, grammar checks, answer validation and question generation.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-edu/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"os"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driving/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
