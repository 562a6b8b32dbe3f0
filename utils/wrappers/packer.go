// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInsufficientLength = errors.New("packer has insufficient length for input")
	errNegativeOffset     = errors.New("negative offset")
	errOversized          = errors.New("size is larger than limit")
)

// Packer writes and reads big-endian fields. The first failure sticks and
// turns every later call into a no-op.
type Packer struct {
	Errs

	// MaxSize caps how far Bytes may grow while packing.
	MaxSize int
	Bytes   []byte
	Offset  int
}

func (p *Packer) PackByte(val byte) {
	p.expand(ByteLen)
	if p.Errored() {
		return
	}
	p.Bytes[p.Offset] = val
	p.Offset += ByteLen
}

func (p *Packer) UnpackByte() byte {
	p.checkSpace(ByteLen)
	if p.Errored() {
		return 0
	}
	val := p.Bytes[p.Offset]
	p.Offset += ByteLen
	return val
}

func (p *Packer) PackInt(val uint32) {
	p.expand(IntLen)
	if p.Errored() {
		return
	}
	binary.BigEndian.PutUint32(p.Bytes[p.Offset:], val)
	p.Offset += IntLen
}

func (p *Packer) UnpackInt() uint32 {
	p.checkSpace(IntLen)
	if p.Errored() {
		return 0
	}
	val := binary.BigEndian.Uint32(p.Bytes[p.Offset:])
	p.Offset += IntLen
	return val
}

func (p *Packer) PackLong(val uint64) {
	p.expand(LongLen)
	if p.Errored() {
		return
	}
	binary.BigEndian.PutUint64(p.Bytes[p.Offset:], val)
	p.Offset += LongLen
}

func (p *Packer) UnpackLong() uint64 {
	p.checkSpace(LongLen)
	if p.Errored() {
		return 0
	}
	val := binary.BigEndian.Uint64(p.Bytes[p.Offset:])
	p.Offset += LongLen
	return val
}

// PackFixedBytes appends bytes without a length prefix.
func (p *Packer) PackFixedBytes(bytes []byte) {
	p.expand(len(bytes))
	if p.Errored() {
		return
	}
	copy(p.Bytes[p.Offset:], bytes)
	p.Offset += len(bytes)
}

// UnpackFixedBytes returns the next size bytes. The result aliases Bytes.
func (p *Packer) UnpackFixedBytes(size int) []byte {
	p.checkSpace(size)
	if p.Errored() {
		return nil
	}
	bytes := p.Bytes[p.Offset : p.Offset+size]
	p.Offset += size
	return bytes
}

// PackBytes appends bytes behind a uint32 length prefix.
func (p *Packer) PackBytes(bytes []byte) {
	p.PackInt(uint32(len(bytes)))
	p.PackFixedBytes(bytes)
}

// UnpackLimitedBytes reads a length-prefixed slice of at most limit bytes.
func (p *Packer) UnpackLimitedBytes(limit uint32) []byte {
	size := p.UnpackInt()
	if size > limit {
		p.Add(errOversized)
		return nil
	}
	return p.UnpackFixedBytes(int(size))
}

// Remaining reports the unread bytes.
func (p *Packer) Remaining() int {
	return len(p.Bytes) - p.Offset
}

func (p *Packer) checkSpace(bytes int) {
	switch {
	case p.Offset < 0:
		p.Add(errNegativeOffset)
	case bytes < 0 || len(p.Bytes)-p.Offset < bytes:
		p.Add(ErrInsufficientLength)
	}
}

func (p *Packer) expand(bytes int) {
	needed := p.Offset + bytes
	switch {
	case needed <= len(p.Bytes):
	case needed > p.MaxSize:
		p.Add(ErrInsufficientLength)
	case needed <= cap(p.Bytes):
		p.Bytes = p.Bytes[:needed]
	default:
		p.Bytes = append(p.Bytes[:cap(p.Bytes)], make([]byte, needed-cap(p.Bytes))...)
	}
}
