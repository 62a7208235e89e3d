package category

// TODO: держать дефолты в configs/categories.yaml и встраивать через embed
func Defaults() *Registry {
	return NewRegistry([]Category{
		{
			Name:     Coding,
			Priority: 1,
			Keywords: []string{
				"code", "function", "api", "server", "implement", "bug", "debug", "refactor",
				"python", "golang", " go ", "javascript", "typescript", "rust", "java",
				"fastapi", "django", "flask", "react", "websocket", "grpc", "library", "framework",
			},
			SystemPrompt: `You are a senior software engineer. Rewrite the request so it names the language,
framework, constraints, error handling and testing expectations explicitly.`,
		},
		{
			Name:     Documentation,
			Priority: 2,
			Keywords: []string{
				"document", "docs", "readme", "spec", "rfc", "protocol", "reference", "explain", "guide",
			},
			SystemPrompt: `You are a technical writer. Rewrite the request so the expected audience,
structure and level of detail of the documentation are explicit.`,
		},
		{
			Name:     DevOps,
			Priority: 3,
			Keywords: []string{
				"deploy", "docker", "kubernetes", "k8s", "ci/cd", "pipeline", "terraform", "helm", "production", "monitoring",
			},
			SystemPrompt: `You are a platform engineer. Rewrite the request so environment, scale,
rollout and observability requirements are explicit.`,
		},
		{
			Name:     Data,
			Priority: 4,
			Keywords: []string{
				"data", "sql", "database", "query", "pandas", "analytics", "etl", "dataset", "postgres",
			},
			SystemPrompt: `You are a data engineer. Rewrite the request so data sources, volumes,
schemas and expected outputs are explicit.`,
		},
		{
			Name:     Writing,
			Priority: 5,
			Keywords: []string{
				"write", "article", "blog", "essay", "email", "story", "post", "copy",
			},
			SystemPrompt: `You are an editor. Rewrite the request so tone, audience, length and format are explicit.`,
		},
		{
			Name:         General,
			Priority:     10,
			SystemPrompt: `Rewrite the request to be specific, unambiguous and complete.`,
		},
	})
}
