package mock

import "context"

type gatewayConfig struct {
	pages                 map[string][]*Page
	statementSideEffects  map[string]func(context.Context) error
	closeSideEffects      map[string]func(context.Context) error
	statuses              map[string]string
	candidates            []string
	openSessionSideEffect func(context.Context) error
	sessionConfig         map[string]string
}

type GatewayOption func(*gatewayConfig)

// GatewayWithPages scripts the fetch responses of every operation executing statement.
func GatewayWithPages(statement string, pages ...*Page) GatewayOption {
	return func(c *gatewayConfig) {
		_, ok := c.pages[statement]
		if ok {
			panic("pages already registered for statement: " + statement)
		}

		c.pages[statement] = pages
	}
}

// GatewayWithStatementSideEffect runs sideEffect when statement is executed,
// an error fails the execution.
func GatewayWithStatementSideEffect(statement string, sideEffect func(context.Context) error) GatewayOption {
	return func(c *gatewayConfig) {
		_, ok := c.statementSideEffects[statement]
		if ok {
			panic("side effect already registered for statement: " + statement)
		}

		c.statementSideEffects[statement] = sideEffect
	}
}

// GatewayWithCloseSideEffect runs sideEffect when an operation of statement
// is closed, an error fails the close.
func GatewayWithCloseSideEffect(statement string, sideEffect func(context.Context) error) GatewayOption {
	return func(c *gatewayConfig) {
		_, ok := c.closeSideEffects[statement]
		if ok {
			panic("close side effect already registered for statement: " + statement)
		}

		c.closeSideEffects[statement] = sideEffect
	}
}

func GatewayWithStatus(statement, status string) GatewayOption {
	return func(c *gatewayConfig) {
		c.statuses[statement] = status
	}
}

func GatewayWithCandidates(candidates ...string) GatewayOption {
	return func(c *gatewayConfig) {
		c.candidates = candidates
	}
}

func GatewayWithOpenSessionSideEffect(sideEffect func(context.Context) error) GatewayOption {
	return func(c *gatewayConfig) {
		c.openSessionSideEffect = sideEffect
	}
}

func GatewayWithSessionConfig(config map[string]string) GatewayOption {
	return func(c *gatewayConfig) {
		c.sessionConfig = config
	}
}
