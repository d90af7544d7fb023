package testutil

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/vrsandeep/squish-go/internal/codec"
	"github.com/vrsandeep/squish-go/internal/models"
)

// FakeCodec is a controllable codec backend for tests.
type FakeCodec struct {
	format models.Format
	scale  codec.QualityScale

	mu         sync.Mutex
	loadErr    error
	loadGate   chan struct{}
	stubborn   bool
	encodeErr  error
	outputSize int
	loads      int
	encodes    int
	lastOpts   codec.Options
}

// NewFakeCodec creates a fake that loads instantly and emits outputSize bytes.
func NewFakeCodec(f models.Format, scale codec.QualityScale) *FakeCodec {
	return &FakeCodec{format: f, scale: scale, outputSize: 64}
}

func (c *FakeCodec) Format() models.Format            { return c.format }
func (c *FakeCodec) QualityScale() codec.QualityScale { return c.scale }

// Load blocks while a gate is set, then returns the configured load error.
func (c *FakeCodec) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loads++
	gate := c.loadGate
	stubborn := c.stubborn
	err := c.loadErr
	c.mu.Unlock()

	if gate != nil && stubborn {
		<-gate
	} else if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *FakeCodec) Encode(ctx context.Context, buf *models.PixelBuffer, opts codec.Options) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodes++
	c.lastOpts = opts
	if c.encodeErr != nil {
		return nil, c.encodeErr
	}
	return bytes.Repeat([]byte{byte(len(c.format))}, c.outputSize), nil
}

// FailLoad makes every subsequent Load return err. A nil err restores success.
func (c *FakeCodec) FailLoad(err error) *FakeCodec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadErr = err
	return c
}

// BlockLoad makes Load wait until the returned function is called.
func (c *FakeCodec) BlockLoad() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.loadGate = gate
	c.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// IgnoreCancel makes a blocked Load wait for its release even after its
// context is done, like a backend that cannot be interrupted.
func (c *FakeCodec) IgnoreCancel() *FakeCodec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stubborn = true
	return c
}

// FailEncode makes every subsequent Encode return err.
func (c *FakeCodec) FailEncode(err error) *FakeCodec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodeErr = err
	return c
}

// SetOutputSize sets the number of bytes Encode emits. Zero produces empty output.
func (c *FakeCodec) SetOutputSize(n int) *FakeCodec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputSize = n
	return c
}

func (c *FakeCodec) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

func (c *FakeCodec) Encodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encodes
}

func (c *FakeCodec) LastOptions() codec.Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOpts
}

// FakeCodecs holds one fake per output format.
type FakeCodecs map[models.Format]*FakeCodec

// NewFakeCodecs creates fakes for every format with the same quality scales as
// the real backends.
func NewFakeCodecs() FakeCodecs {
	return FakeCodecs{
		models.AVIF: NewFakeCodec(models.AVIF, codec.ScaleFraction),
		models.JPEG: NewFakeCodec(models.JPEG, codec.ScalePercent),
		models.JXL:  NewFakeCodec(models.JXL, codec.ScaleFraction),
		models.PNG:  NewFakeCodec(models.PNG, codec.ScaleNone),
		models.WEBP: NewFakeCodec(models.WEBP, codec.ScalePercent),
	}
}

// List returns the fakes as codecs in format display order.
func (f FakeCodecs) List() []codec.Codec {
	out := make([]codec.Codec, 0, len(f))
	for _, format := range models.AllFormats {
		if c, ok := f[format]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Registry registers every fake with a new registry.
func (f FakeCodecs) Registry(timeout time.Duration) *codec.Registry {
	r := codec.NewRegistry(timeout)
	for _, c := range f.List() {
		r.Register(c)
	}
	return r
}
