package clock

import "time"

// tickerDriver advances the counter from a dedicated goroutine. Ticks missed
// while the goroutine was not scheduled are replayed one by one.
type tickerDriver struct {
	quit chan struct{}
	done chan struct{}
}

func (d *tickerDriver) kind() DriverKind { return DriverTicker }

func (d *tickerDriver) start(advance func(), interval time.Duration) error {
	d.quit = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(advance, interval)
	return nil
}

func (d *tickerDriver) run(advance func(), interval time.Duration) {
	defer close(d.done)
	tickTimer := time.NewTimer(interval)
	defer tickTimer.Stop()
	last := time.Now()
	for {
		select {
		case <-d.quit:
			return
		case now := <-tickTimer.C:
			n := now.Sub(last) / interval
			for i := time.Duration(0); i < n; i++ {
				advance()
			}
			last = last.Add(n * interval)
			next := interval - now.Sub(last)
			if next <= 0 {
				next = time.Millisecond
			}
			tickTimer.Reset(next)
		}
	}
}

func (d *tickerDriver) stop() error {
	close(d.quit)
	<-d.done
	return nil
}
