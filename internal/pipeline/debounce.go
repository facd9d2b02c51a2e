package pipeline

import (
	"time"

	"iiqsort/internal/model"
)

// Debounce collects events and emits them as one batch once no new event has
// arrived for delay. Pending events are flushed when inCh closes.
func Debounce(inCh <-chan model.FileEvent, delay time.Duration) <-chan []model.FileEvent {
	outCh := make(chan []model.FileEvent, 1)

	go func() {
		defer close(outCh)

		var (
			pending []model.FileEvent
			timer   *time.Timer
			fire    <-chan time.Time
		)

		for {
			select {
			case event, ok := <-inCh:
				if !ok {
					if timer != nil {
						timer.Stop()
					}
					if len(pending) > 0 {
						outCh <- pending
					}
					return
				}

				pending = append(pending, event)
				if timer == nil {
					timer = time.NewTimer(delay)
				} else {
					timer.Reset(delay)
				}
				fire = timer.C

			case <-fire:
				outCh <- pending
				pending = nil
				fire = nil
			}
		}
	}()

	return outCh
}
