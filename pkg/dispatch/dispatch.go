// Package dispatch maps an incoming operation name to the concrete request
// type and Executor that handle it, the closed table every submitted
// mutation is routed through.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/goclaw/goclaw/pkg/executor"
	"github.com/goclaw/goclaw/pkg/request"
)

// Build deserializes raw according to the named operation and returns the
// Executor that will run it. A nil Executor with a non-nil error means the
// event was malformed or the operation name unknown; the caller reports
// executor.ReasonIncorrectRequest in that case.
func Build(operation string, raw json.RawMessage) (executor.Executor, error) {
	switch request.Kind(operation) {
	case request.KindCreateNode:
		op, err := request.Deserialize(request.KindCreateNode, raw)
		if err != nil {
			return nil, err
		}
		return executor.NewCreateNodeExecutor(op.(*request.CreateNode)), nil

	case request.KindSetData:
		op, err := request.Deserialize(request.KindSetData, raw)
		if err != nil {
			return nil, err
		}
		return executor.NewSetDataExecutor(op.(*request.SetData)), nil

	case request.KindDeleteNode:
		op, err := request.Deserialize(request.KindDeleteNode, raw)
		if err != nil {
			return nil, err
		}
		return executor.NewDeleteNodeExecutor(op.(*request.DeleteNode)), nil

	case request.KindDeregisterSession:
		op, err := request.Deserialize(request.KindDeregisterSession, raw)
		if err != nil {
			return nil, err
		}
		return executor.NewDeregisterSessionExecutor(op.(*request.DeregisterSession)), nil

	default:
		return nil, fmt.Errorf("dispatch: unknown operation %q", operation)
	}
}
