package proxy

import "go.uber.org/fx"

// Module provides the MCP proxy client and handler
var Module = fx.Module("proxy",
	fx.Provide(
		NewClient,
		NewHandler,
	),
)
