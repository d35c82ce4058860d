// Package safego launches background goroutines that cannot take the process down.
package safego

import (
	"fmt"
	"log/slog"
	"sync"
)

// Go runs fn in a new goroutine under the given task name. A panic inside fn is
// recovered and logged with the task name.
func Go(task string, fn func()) {
	go run(task, fn)
}

// Group tracks goroutines started through it so shutdown can wait for them.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn like the package-level Go and registers it with the group.
func (g *Group) Go(task string, fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(task, fn)
	}()
}

// Wait blocks until every goroutine started through the group has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

func run(task string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in background task",
				"task", task,
				"panic", fmt.Sprint(r))
		}
	}()
	fn()
}
