package workflow

// Node names the fixed set of graph nodes.
type Node string

const (
	NodeEntry            Node = "orchestrator_entry"
	NodeReflection       Node = "reflection"
	NodeExecutor         Node = "executor"
	NodeConflictResolver Node = "conflict_resolver"
	NodeFinalResponse    Node = "final_response"
	NodeErrorHandler     Node = "error_handler"
	NodeTerminate        Node = "terminate"
)

// NextAction values a node may set on State.NextAction.
const (
	ActionReflection        = "reflection"
	ActionExecutePlanning   = "execute_planning"
	ActionConflictResolution = "conflict_resolution"
	ActionFinalResponse     = "final_response"
	ActionError             = "error"
	ActionTerminate         = "terminate"
)

// Route is the pure function (current node, next_action) -> next node,
// implementing the §4.6 table exactly. It never reads anything but its
// two arguments, so it carries no side effects and needs no mocking.
func Route(current Node, nextAction string) Node {
	switch current {
	case NodeEntry:
		return NodeReflection
	case NodeReflection:
		switch nextAction {
		case ActionFinalResponse:
			return NodeFinalResponse
		case ActionExecutePlanning:
			return NodeExecutor
		default:
			return NodeErrorHandler
		}
	case NodeExecutor:
		switch nextAction {
		case ActionFinalResponse:
			return NodeFinalResponse
		case ActionConflictResolution:
			return NodeConflictResolver
		default:
			return NodeErrorHandler
		}
	case NodeConflictResolver:
		return NodeFinalResponse
	case NodeFinalResponse:
		return NodeTerminate
	case NodeErrorHandler:
		return NodeTerminate
	default:
		return NodeErrorHandler
	}
}
