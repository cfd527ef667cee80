package harness

// WorkerRequest is one job dispatched to a worker process, one JSON
// document per frame on the worker's stdin.
type WorkerRequest struct {
	Index int `json:"index"`
	Job   Job `json:"job"`
}

// WorkerResponse is the worker's answer for one WorkerRequest on its
// stdout. Engine and loader failures arrive as the result's error
// field, never as a dead worker.
type WorkerResponse struct {
	Index  int              `json:"index"`
	Result SimulationResult `json:"result"`
}
