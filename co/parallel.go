// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"runtime"
	"sync"
)

// Parallel executes a batch of work using as many CPUs as available.
// cb queues work functions and returns; the returned channel is closed
// when all queued work has finished.
func Parallel(cb func(queue chan<- func())) <-chan struct{} {
	nGo := runtime.GOMAXPROCS(0)
	queue := make(chan func(), nGo*2)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(nGo)
	for i := 0; i < nGo; i++ {
		go func() {
			defer wg.Done()
			for work := range queue {
				work()
			}
		}()
	}
	go func() {
		defer close(done)
		wg.Wait()
	}()

	cb(queue)
	close(queue)
	return done
}
