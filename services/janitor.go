package services

import "sync"

// Janitor runs workspace releases on background goroutines so the response
// path never waits on filesystem cleanup. Releases may outlive the request
// that scheduled them; Wait drains outstanding releases at shutdown.
type Janitor struct {
	wg sync.WaitGroup
}

func NewJanitor() *Janitor {
	return &Janitor{}
}

// Schedule queues a best-effort release of the workspace.
func (j *Janitor) Schedule(ws *Workspace) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ws.Release()
	}()
}

// Wait blocks until every scheduled release has finished.
func (j *Janitor) Wait() {
	j.wg.Wait()
}
