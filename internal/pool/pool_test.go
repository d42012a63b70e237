package pool_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/pool"
)

var _ = Describe("Pool", func() {
	Describe("sizing", func() {
		It("falls back to the CPU count", func() {
			p := pool.New(0)
			defer p.Close()
			Expect(p.Size()).To(Equal(pool.DefaultSize()))
			Expect(p.Size()).To(BeNumerically(">=", 1))
		})

		It("keeps an explicit size", func() {
			p := pool.New(3)
			defer p.Close()
			Expect(p.Size()).To(Equal(3))
		})
	})

	Describe("Wait", func() {
		DescribeTable("runs every task exactly once",
			func(size, tasks int) {
				p := pool.New(size)
				defer p.Close()

				var counter atomic.Int64
				for i := 0; i < tasks; i++ {
					p.Enqueue(func() { counter.Add(1) })
				}
				p.Wait()

				Expect(counter.Load()).To(Equal(int64(tasks)))
			},
			Entry("no tasks", 1, 0),
			Entry("one worker, one task", 1, 1),
			Entry("one worker, many tasks", 1, 2500),
			Entry("two workers", 2, 1000),
			Entry("more workers than tasks", 16, 5),
			Entry("default size", 0, 5000),
		)

		It("holds for every size up to the CPU count", func() {
			for size := 1; size <= pool.DefaultSize(); size++ {
				p := pool.New(size)
				var counter atomic.Int64
				for i := 0; i < 3000; i++ {
					p.Enqueue(func() { counter.Add(1) })
				}
				p.Wait()
				Expect(counter.Load()).To(Equal(int64(3000)), "size %d", size)
				p.Close()
			}
		})

		It("waits for running tasks, not just an empty queue", func() {
			p := pool.New(2)
			defer p.Close()

			var done atomic.Int32
			for i := 0; i < 4; i++ {
				p.Enqueue(func() {
					time.Sleep(20 * time.Millisecond)
					done.Add(1)
				})
			}
			p.Wait()
			Expect(done.Load()).To(Equal(int32(4)))
		})

		It("can be reused across rounds", func() {
			p := pool.New(4)
			defer p.Close()

			var counter atomic.Int64
			for round := 1; round <= 50; round++ {
				for i := 0; i < 8; i++ {
					p.Enqueue(func() { counter.Add(1) })
				}
				p.Wait()
				Expect(counter.Load()).To(Equal(int64(8 * round)))
			}
		})

		It("runs tasks concurrently", func() {
			p := pool.New(4)
			defer p.Close()

			var rendezvous sync.WaitGroup
			rendezvous.Add(4)
			for i := 0; i < 4; i++ {
				p.Enqueue(func() {
					rendezvous.Done()
					rendezvous.Wait()
				})
			}

			finished := make(chan struct{})
			go func() {
				p.Wait()
				close(finished)
			}()
			Eventually(finished, "2s").Should(BeClosed())
		})

		It("gives disjoint writers a consistent view", func() {
			p := pool.New(4)
			defer p.Close()

			out := make([]int, 1000)
			for w := 0; w < 4; w++ {
				start, end := w*250, (w+1)*250
				p.Enqueue(func() {
					for i := start; i < end; i++ {
						out[i] = i * i
					}
				})
			}
			p.Wait()

			for i := range out {
				Expect(out[i]).To(Equal(i * i))
			}
		})
	})

	Describe("Close", func() {
		It("drops queued tasks and reports them", func() {
			p := pool.New(1)

			started := make(chan struct{})
			release := make(chan struct{})
			var ran atomic.Int32

			p.Enqueue(func() {
				close(started)
				<-release
				ran.Add(1)
			})
			Eventually(started).Should(BeClosed())

			for i := 0; i < 5; i++ {
				p.Enqueue(func() { ran.Add(1) })
			}

			dropped := make(chan int, 1)
			go func() { dropped <- p.Close() }()
			Eventually(p.Closed).Should(BeTrue())
			close(release)

			Eventually(dropped).Should(Receive(Equal(5)))
			Expect(ran.Load()).To(Equal(int32(1)))
		})

		It("returns zero for an idle pool", func() {
			p := pool.New(2)
			Expect(p.Close()).To(Equal(0))
		})

		It("rejects enqueue afterwards", func() {
			p := pool.New(1)
			p.Close()
			Expect(func() { p.Enqueue(func() {}) }).To(PanicWith("pool: enqueue on closed pool"))
		})

		It("rejects a second close", func() {
			p := pool.New(1)
			p.Close()
			Expect(func() { p.Close() }).To(Panic())
		})

		It("rejects nil tasks", func() {
			p := pool.New(1)
			defer p.Close()
			Expect(func() { p.Enqueue(nil) }).To(Panic())
		})
	})
})
