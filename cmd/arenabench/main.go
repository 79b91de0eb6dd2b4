// Command arenabench builds linked lists of nodes in typed arenas, checks
// that every list is still intact once all workers are done, and reports
// how the arenas grew.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"golang.org/x/sync/errgroup"

	"github.com/pavanmanishd/typedarena"
)

type config struct {
	capacity    int
	workers     int
	allocs      int
	batch       int
	safe        bool
	logLevel    string
	dumpMetrics bool
}

func (c *config) registerFlags(app *kingpin.Application) {
	app.Flag("capacity", "Element capacity of the first chunk of each arena. 0 derives it from the default byte budget.").Default("0").IntVar(&c.capacity)
	app.Flag("workers", "Number of goroutines building lists.").Default("4").IntVar(&c.workers)
	app.Flag("allocs", "Number of nodes each worker allocates.").Default("100000").IntVar(&c.allocs)
	app.Flag("batch", "Number of nodes allocated per call.").Default("1").IntVar(&c.batch)
	app.Flag("safe", "Share one SafeArena between all workers instead of one Arena per worker.").Default("true").BoolVar(&c.safe)
	app.Flag("log.level", "Only log messages with the given severity or above.").Default("info").EnumVar(&c.logLevel, "debug", "info", "warn", "error")
	app.Flag("metrics", "Print the arena metrics in Prometheus text format.").BoolVar(&c.dumpMetrics)
}

func (c *config) validate() error {
	if c.workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.workers)
	}
	if c.allocs < 0 {
		return errors.Errorf("allocs must not be negative, got %d", c.allocs)
	}
	if c.batch < 1 {
		return errors.Errorf("batch must be at least 1, got %d", c.batch)
	}
	return nil
}

func main() {
	var cfg config
	app := kingpin.New("arenabench", "Builds linked lists in typed arenas and reports how the arenas grew.")
	cfg.registerFlags(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := newLogger(os.Stderr, cfg.logLevel)
	if err := run(cfg, logger, os.Stdout); err != nil {
		level.Error(logger).Log("msg", "arenabench failed", "err", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	return log.With(level.NewFilter(logger, opt), "ts", log.DefaultTimestampUTC)
}

// listNode is one element of a worker's list.
type listNode struct {
	prev   *listNode
	worker int
	seq    int
}

// nodeArena is the part of Arena and SafeArena used by the workers.
type nodeArena interface {
	Alloc(listNode) *listNode
	AllocSlice([]listNode) []listNode
	Stats() typedarena.Stats
	Release()
}

func run(cfg config, logger log.Logger, out io.Writer) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []typedarena.Option{
		typedarena.WithCapacity(cfg.capacity),
		typedarena.WithLogger(logger),
		typedarena.WithMetrics(typedarena.NewMetrics(reg)),
	}

	arenas := make([]nodeArena, cfg.workers)
	if cfg.safe {
		shared := typedarena.NewSafe[listNode](opts...)
		for i := range arenas {
			arenas[i] = shared
		}
		defer shared.Release()
	} else {
		for i := range arenas {
			a := typedarena.New[listNode](opts...)
			arenas[i] = a
			defer a.Release()
		}
	}

	tails := make([]*listNode, cfg.workers)
	g := errgroup.Group{}
	for w := 0; w < cfg.workers; w++ {
		g.Go(func() error {
			tails[w] = buildList(arenas[w], w, cfg.allocs, cfg.batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for w, tail := range tails {
		if err := verifyList(tail, w, cfg.allocs); err != nil {
			return errors.Wrapf(err, "worker %d", w)
		}
	}
	level.Info(logger).Log("msg", "all lists verified", "workers", cfg.workers, "nodes_per_worker", cfg.allocs)

	printSummary(out, cfg, collectStats(arenas, cfg.safe))

	if cfg.dumpMetrics {
		return dumpMetrics(out, reg)
	}
	return nil
}

// buildList allocates n nodes for worker w, batch at a time, each node
// linked to the one allocated before it.
func buildList(a nodeArena, w, n, batch int) *listNode {
	var (
		tail *listNode
		buf  = make([]listNode, 0, batch)
	)
	for seq := 0; seq < n; {
		if batch == 1 {
			tail = a.Alloc(listNode{prev: tail, worker: w, seq: seq})
			seq++
			continue
		}

		buf = buf[:0]
		for len(buf) < batch && seq < n {
			buf = append(buf, listNode{worker: w, seq: seq})
			seq++
		}
		nodes := a.AllocSlice(buf)
		for i := range nodes {
			nodes[i].prev = tail
			tail = &nodes[i]
		}
	}
	return tail
}

// verifyList walks back from tail and checks that the list holds exactly
// the n nodes of worker w in order.
func verifyList(tail *listNode, w, n int) error {
	want := n - 1
	for node := tail; node != nil; node = node.prev {
		if node.worker != w {
			return errors.Errorf("node %d belongs to worker %d", want, node.worker)
		}
		if node.seq != want {
			return errors.Errorf("found node %d, expected %d", node.seq, want)
		}
		want--
	}
	if want != -1 {
		return errors.Errorf("list is missing %d nodes", want+1)
	}
	return nil
}

func collectStats(arenas []nodeArena, shared bool) typedarena.Stats {
	if shared && len(arenas) > 0 {
		return arenas[0].Stats()
	}
	var total typedarena.Stats
	for _, a := range arenas {
		s := a.Stats()
		total.Elements += s.Elements
		total.Allocations += s.Allocations
		total.Grows += s.Grows
		total.NumChunks += s.NumChunks
		total.Capacity += s.Capacity
		total.ElementSize = s.ElementSize
		total.BytesInUse += s.BytesInUse
		total.BytesReserved += s.BytesReserved
	}
	if total.Capacity > 0 {
		total.Utilization = float64(total.Elements) / float64(total.Capacity)
	}
	return total
}

func printSummary(w io.Writer, cfg config, s typedarena.Stats) {
	kind := "Arena per worker"
	if cfg.safe {
		kind = "shared SafeArena"
	}
	fmt.Fprintf(w, "Arena:          %s\n", kind)
	fmt.Fprintf(w, "Elements:       %s\n", humanize.Comma(int64(s.Elements)))
	fmt.Fprintf(w, "Allocations:    %s\n", humanize.Comma(int64(s.Allocations)))
	fmt.Fprintf(w, "Chunks:         %d (%d grows)\n", s.NumChunks, s.Grows)
	fmt.Fprintf(w, "Memory in use:  %s\n", humanize.IBytes(uint64(s.BytesInUse)))
	fmt.Fprintf(w, "Reserved:       %s\n", humanize.IBytes(uint64(s.BytesReserved)))
	fmt.Fprintf(w, "Utilization:    %.1f%%\n", s.Utilization*100)
}

func dumpMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "encoding metrics")
		}
	}
	return nil
}
