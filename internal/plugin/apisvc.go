package plugin

import (
	"context"
	"fmt"

	"github.com/agentic-research/loom/api"
)

// APIConfig configures the api plugin.
type APIConfig struct {
	// Name is the service name used in logs and the manifest.
	Name string `json:"name" validate:"required"`
	// Port is the default listen port.
	Port int `json:"port" validate:"min=0,max=65535"`
	// Database enables the Postgres connection scaffolding.
	Database bool `json:"database"`
}

// APIService generates an Express backend service: entrypoint, a health
// route, a request-logging middleware, and the service manifest.
type APIService struct{}

// NewAPI returns the api plugin.
func NewAPI() *APIService { return &APIService{} }

func (*APIService) Type() string { return "api" }

func (*APIService) Validate(node api.Node, _ *api.ExecutionContext) api.ValidationResult {
	return validateConfig(node.Config, func() any { return &APIConfig{} })
}

func (*APIService) Generate(_ context.Context, node api.Node, _ *api.ExecutionContext) (*api.CodegenOutput, error) {
	var cfg APIConfig
	if errs := decodeConfig(node.Config, &cfg); len(errs) > 0 {
		return nil, fmt.Errorf("node %s: %s: %s", node.ID, errs[0].Field, errs[0].Message)
	}
	if cfg.Port == 0 {
		cfg.Port = 4000
	}

	out := &api.CodegenOutput{}
	for _, f := range []struct {
		path     string
		tmpl     string
		category api.FileCategory
	}{
		{"health.ts", apiHealthRouteTemplate, api.CategoryBackendRoute},
		{"logger.ts", apiLoggerTemplate, api.CategoryBackendMiddleware},
		{"config.ts", apiConfigServiceTemplate, api.CategoryBackendService},
	} {
		content, err := render(f.path, f.tmpl, cfg)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, api.GeneratedFile{
			Path:     f.path,
			Content:  []byte(content),
			Category: f.category,
		})
	}

	// Entrypoint and manifest sit outside the categorized source root.
	for _, f := range []struct {
		path string
		tmpl string
	}{
		{"apps/api/src/index.ts", apiIndexTemplate},
		{"apps/api/package.json", apiPackageTemplate},
	} {
		content, err := render(f.path, f.tmpl, cfg)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, api.GeneratedFile{Path: f.path, Content: []byte(content)})
	}

	out.EnvVars = []api.EnvVar{
		{Key: "API_PORT", Value: fmt.Sprintf("%d", cfg.Port), Description: "Backend listen port"},
	}
	if cfg.Database {
		out.EnvVars = append(out.EnvVars, api.EnvVar{
			Key:         "DATABASE_URL",
			Value:       "postgres://localhost:5432/" + kebabCase(cfg.Name),
			Description: "Postgres connection string",
		})
	}
	out.Scripts = []api.ScriptCommand{
		{Name: "api:dev", Command: "pnpm --filter api dev"},
		{Name: "api:start", Command: "pnpm --filter api start"},
	}

	docs, err := render("api-docs", apiDocsTemplate, cfg)
	if err != nil {
		return nil, err
	}
	out.Docs = docs
	return out, nil
}

const apiIndexTemplate = `import express from "express";
import { healthRouter } from "./routes/health";
import { requestLogger } from "./middleware/logger";
import { config } from "./services/config";

const app = express();
app.use(express.json());
app.use(requestLogger);
app.use("/health", healthRouter);

app.listen(config.port, () => {
  console.log(` + "`{{.Name}} listening on :${config.port}`" + `);
});
`

const apiHealthRouteTemplate = `import { Router } from "express";

export const healthRouter = Router();

healthRouter.get("/", (_req, res) => {
  res.json({ status: "ok", service: "{{.Name}}" });
});
`

const apiLoggerTemplate = `import type { Request, Response, NextFunction } from "express";

export function requestLogger(req: Request, res: Response, next: NextFunction) {
  const start = Date.now();
  res.on("finish", () => {
    console.log(` + "`${req.method} ${req.path} ${res.statusCode} ${Date.now() - start}ms`" + `);
  });
  next();
}
`

const apiConfigServiceTemplate = `export const config = {
  port: Number(process.env.API_PORT ?? {{.Port}}),
{{- if .Database}}
  databaseUrl: process.env.DATABASE_URL ?? "",
{{- end}}
};
`

const apiPackageTemplate = `{
  "name": "api",
  "private": true,
  "scripts": {
    "dev": "tsx watch src/index.ts",
    "start": "node dist/index.js",
    "build": "tsc"
  },
  "dependencies": {
    "express": "^4.19.2"
  },
  "devDependencies": {
    "@types/express": "^4.17.21",
    "@types/node": "^20",
    "tsx": "^4.16.2",
    "typescript": "^5"
  }
}
`

const apiDocsTemplate = `## Backend service

An Express service under ` + "`apps/api`" + ` named **{{.Name}}**, listening on
port {{.Port}} with a ` + "`/health`" + ` route and request logging.
{{if .Database}}It expects a Postgres database via ` + "`DATABASE_URL`" + `.{{end}}

### Running

` + "```bash" + `
pnpm api:dev
` + "```" + `
`
