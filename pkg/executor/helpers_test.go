package executor

import "github.com/goclaw/goclaw/pkg/request"

func createNodeOp(path string) *request.CreateNode {
	return &request.CreateNode{SessionID: "session-1", EventID: "evt-1", Path: path}
}

func setDataOp(path string) *request.SetData {
	return &request.SetData{SessionID: "session-1", EventID: "evt-1", Path: path, DataB64: "aGVsbG8="}
}

func deleteNodeOp(path string) *request.DeleteNode {
	return &request.DeleteNode{SessionID: "session-1", EventID: "evt-1", Path: path}
}

func deregisterOp(sessionID string) *request.DeregisterSession {
	return &request.DeregisterSession{SessionID: sessionID, EventID: "evt-1"}
}
