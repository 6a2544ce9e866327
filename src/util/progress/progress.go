package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// interval throttles redraws of the progress line.
const interval = 200 * time.Millisecond

// Reader wraps an io.Reader and periodically writes progress updates to out.
type Reader struct {
	r           io.Reader
	out         io.Writer
	label       string
	total       int64
	read        int64
	done        bool
	mu          sync.Mutex
	lastPrinted time.Time
}

// NewReader creates a new progress Reader. If total is 0, percentage is omitted.
func NewReader(r io.Reader, total int64, label string, out io.Writer) *Reader {
	return &Reader{r: r, out: out, label: label, total: total}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.read += int64(n)
		now := time.Now()
		if now.Sub(p.lastPrinted) >= interval {
			p.print()
			p.lastPrinted = now
		}
	}
	if err == io.EOF && !p.done {
		p.done = true
		p.print() // final
		if p.out != nil {
			fmt.Fprint(p.out, "\n")
		}
	}
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (p *Reader) BytesRead() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read
}

func (p *Reader) print() {
	if p.out == nil {
		return
	}
	if p.total > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		fmt.Fprintf(p.out, "\r[%s] %.1f%% (%d/%d bytes)", p.label, pct, p.read, p.total)
	} else {
		fmt.Fprintf(p.out, "\r[%s] %d bytes", p.label, p.read)
	}
}
