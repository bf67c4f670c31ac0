package errors

import (
	"sort"
	"sync"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var (
	registryMu sync.RWMutex

	// registry maps error codes to their templates.
	registry = map[string]ErrorTemplate{
		// Reactive graph (E100-E119)
		"E101": {
			Category: CategoryReactive,
			Message:  "Computation failed",
			Detail:   "A memo or effect body panicked. The computation stays stale and runs again on its next trigger.",
		},
		"E102": {
			Category: CategoryReactive,
			Message:  "Runaway update",
			Detail:   "A single flush executed more computations than the configured limit. A computation is probably writing to one of its own transitive dependencies.",
		},
		"E103": {
			Category: CategoryReactive,
			Message:  "Owner disposed",
			Detail:   "The owner scope was disposed before the operation ran.",
		},
		"E104": {
			Category: CategoryReactive,
			Message:  "No owner",
			Detail:   "The operation needs an owner scope but none is active.",
		},
		"E105": {
			Category: CategoryReactive,
			Message:  "Dispatch panicked",
			Detail:   "A function queued with Runtime.Dispatch panicked on the runtime goroutine.",
		},

		// Resources (E200-E219)
		"E201": {
			Category: CategoryResource,
			Message:  "Resource fetch failed",
			Detail:   "The resource fetcher returned an error. The error is stored in the resource state.",
		},
		"E202": {
			Category: CategoryResource,
			Message:  "Invalid refresh schedule",
			Detail:   "The cron expression given to RefreshSchedule could not be parsed.",
		},

		// Reconciliation (E300-E319)
		"E301": {
			Category: CategoryReconcile,
			Message:  "Missing key function",
			Detail:   "Keyed reconciliation needs a function returning the identity of each item.",
		},

		// Configuration (E400-E419)
		"E401": {
			Category: CategoryConfig,
			Message:  "Invalid configuration file",
			Detail:   "The configuration file is malformed.",
		},
		"E402": {
			Category: CategoryConfig,
			Message:  "Invalid configuration value",
			Detail:   "A configuration value is out of range.",
		},
		"E403": {
			Category: CategoryConfig,
			Message:  "Unsupported configuration format",
			Detail:   "Configuration files must end in .yaml, .yml or .json.",
		},

		// Bridge (E500-E519)
		"E501": {
			Category: CategoryBridge,
			Message:  "WebSocket upgrade failed",
			Detail:   "Unable to upgrade the renderer connection to a WebSocket.",
		},
		"E502": {
			Category: CategoryBridge,
			Message:  "Renderer too slow",
			Detail:   "The renderer did not drain its frame buffer and was disconnected.",
		},
		"E503": {
			Category:   CategoryBridge,
			Message:    "Listen failed",
			Detail:     "The bridge server could not listen on its address.",
			Suggestion: "Pick another address with --addr or stop the process using it",
		},

		// CLI (E600-E619)
		"E601": {
			Category: CategoryCLI,
			Message:  "Invalid arguments",
			Detail:   "The command was called with invalid arguments.",
		},

		// Datafeed (E700-E719)
		"E701": {
			Category: CategoryData,
			Message:  "Malformed chart payload",
			Detail:   "The chart payload could not be decoded or has no result series.",
		},
		"E702": {
			Category: CategoryData,
			Message:  "No valid candles",
			Detail:   "Every row of the series had a missing timestamp or price.",
		},
		"E703": {
			Category:   CategoryData,
			Message:    "Datafeed request failed",
			Detail:     "The chart source could not be reached or returned an error status.",
			Suggestion: "Check the feed URL or bucket and your network access",
		},
	}
)

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = template
}
