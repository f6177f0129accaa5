package xfer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type decoderTestSequence struct {
	in     []byte
	expect Result
	final  Result
}

type decoderTestSequenceBuilder struct {
	seq []decoderTestSequence
}

func decoderTestSequences() *decoderTestSequenceBuilder {
	return &decoderTestSequenceBuilder{}
}

func (b *decoderTestSequenceBuilder) on(in ...byte) *decoderTestSequenceBuilder {
	b.seq = append(b.seq, decoderTestSequence{in: in})
	return b
}

func (b *decoderTestSequenceBuilder) final(r Result) *decoderTestSequenceBuilder {
	b.seq[len(b.seq)-1].final = r
	return b
}

func (b *decoderTestSequenceBuilder) record(data ...byte) *decoderTestSequenceBuilder {
	return b.final(Result{Status: FrameReady, Record: data})
}

func (b *decoderTestSequenceBuilder) sizeMismatch(want, got int) *decoderTestSequenceBuilder {
	return b.final(Result{Status: SizeMismatch, Err: &SizeError{Want: want, Got: got}})
}

func (b *decoderTestSequenceBuilder) checksumMismatch(want, got byte) *decoderTestSequenceBuilder {
	return b.final(Result{Status: ChecksumMismatch, Err: &ChecksumError{Want: want, Got: got}})
}

func (b *decoderTestSequenceBuilder) build() []decoderTestSequence {
	return b.seq
}

func mustDecoder(t *testing.T, size int) *Decoder {
	d, err := NewDecoder(size)
	require.NoError(t, err)
	return d
}

func mustFrame(t *testing.T, record []byte) []byte {
	frame, err := AppendFrame(nil, record)
	require.NoError(t, err)
	return frame
}

func TestDecoderParse(t *testing.T) {
	testCases := []struct {
		name       string
		fastResync bool
		seq        []decoderTestSequence
	}{
		{
			name: "single frame",
			seq: decoderTestSequences().
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				build(),
		},
		{
			name: "skip leading junk",
			seq: decoderTestSequences().
				on(0x00, 0x85, 0x04, 0xff).
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				build(),
		},
		{
			name: "back to back",
			seq: decoderTestSequences().
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				on(0x06, 0x85, 0x04, 0, 0, 0, 0, 0x04).record(0, 0, 0, 0).
				build(),
		},
		{
			name: "start bytes inside payload",
			seq: decoderTestSequences().
				on(0x06, 0x85, 0x04, 0x06, 0x85, 0x04, 0x06, 0x85).record(0x06, 0x85, 0x04, 0x06).
				build(),
		},
		{
			name: "size mismatch",
			seq: decoderTestSequences().
				on(0x06, 0x85, 0x05).sizeMismatch(4, 5).
				on(1, 2, 3, 4, 5).
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				build(),
		},
		{
			name: "zero length",
			seq: decoderTestSequences().
				on(0x06, 0x85, 0x00).sizeMismatch(4, 0).
				build(),
		},
		{
			name: "checksum mismatch",
			seq: decoderTestSequences().
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x05).checksumMismatch(0x00, 0x05).
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				build(),
		},
		{
			name: "bad second start byte is discarded",
			seq: decoderTestSequences().
				on(0x06, 0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).
				on(0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				build(),
		},
		{
			name:       "bad second start byte with fast resync",
			fastResync: true,
			seq: decoderTestSequences().
				on(0x06, 0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00).record(1, 2, 3, 4).
				build(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustDecoder(t, 4)
			d.FastResync = tc.fastResync
			for n, s := range tc.seq {
				var r Result
				for i, b := range s.in {
					r = d.Parse(b)
					if i+1 < len(s.in) {
						require.Equalf(t, s.expect, r, "seq[%d][%d] expect mismatch", n, i)
					}
				}
				require.Equalf(t, s.final, r, "seq[%d] final mismatch", n)
			}
			require.Equal(t, StateStart1, d.State())
		})
	}
}

func TestDecoderStates(t *testing.T) {
	d := mustDecoder(t, 2)
	require.Equal(t, StateStart1, d.State())
	d.Parse(0x06)
	require.Equal(t, StateStart2, d.State())
	d.Parse(0x85)
	require.Equal(t, StateLength, d.State())
	d.Parse(0x02)
	require.Equal(t, StatePayload, d.State())
	d.Parse(0x06)
	require.Equal(t, StatePayload, d.State())
	d.Reset()
	require.Equal(t, StateStart1, d.State())

	require.Equal(t, "payload", StatePayload.String())
	require.Equal(t, "unknown", State(9).String())
	require.Equal(t, "checksum-mismatch", ChecksumMismatch.String())
	require.Equal(t, "unknown", Status(-1).String())
}

func TestNewDecoderInvalidSize(t *testing.T) {
	_, err := NewDecoder(0)
	require.Equal(t, ErrInvalidSize, err)
	_, err = NewDecoder(256)
	require.Equal(t, ErrInvalidSize, err)
}

func TestDecoderFeed(t *testing.T) {
	d := mustDecoder(t, 4)
	var buf Buffer
	buf.Write([]byte{0x00, 0x06, 0x85, 0x04, 0x01, 0x02, 0x03, 0x04, 0x00, 0x99})

	r := d.Feed(&buf)
	require.Equal(t, FrameReady, r.Status)
	require.Equal(t, []byte{1, 2, 3, 4}, r.Record)
	require.NoError(t, r.Err)

	r = d.Feed(&buf)
	require.Equal(t, NeedMoreData, r.Status)
	require.Nil(t, r.Record)
	require.Zero(t, buf.Available())
	require.Equal(t, StateStart1, d.State())
}

func TestDecoderFeedBackToBack(t *testing.T) {
	d := mustDecoder(t, 3)
	records := [][]byte{{1, 2, 3}, {4, 5, 6}, {0x06, 0x85, 0x03}}
	var buf Buffer
	for _, rec := range records {
		buf.Write(mustFrame(t, rec))
	}

	var got [][]byte
	for {
		r := d.Feed(&buf)
		if r.Status == NeedMoreData {
			break
		}
		require.Equal(t, FrameReady, r.Status)
		got = append(got, append([]byte(nil), r.Record...))
	}
	require.Equal(t, records, got)
	require.Zero(t, buf.Available())
}

func TestDecoderFeedNotReady(t *testing.T) {
	d := mustDecoder(t, 4)
	var buf Buffer
	buf.Write([]byte{0x99, 0x06, 0x85})

	r := d.Feed(&buf)
	require.Equal(t, NeedMoreData, r.Status)
	require.Equal(t, []byte{0x06, 0x85}, buf.Bytes())
	require.Equal(t, StateStart1, d.State())

	buf.Write([]byte{0x04, 1, 2, 3, 4, 0x00})
	r = d.Feed(&buf)
	require.Equal(t, FrameReady, r.Status)
	require.Equal(t, []byte{1, 2, 3, 4}, r.Record)
}

func TestDecoderFeedResumesPartialFrame(t *testing.T) {
	d := mustDecoder(t, 4)
	var buf Buffer
	buf.Write([]byte{0x06, 0x85, 0x04, 1, 2})
	require.Equal(t, NeedMoreData, d.Feed(&buf).Status)
	require.Equal(t, StatePayload, d.State())
	require.Zero(t, buf.Available())

	buf.Write([]byte{3})
	require.Equal(t, NeedMoreData, d.Feed(&buf).Status)
	buf.Write([]byte{4, 0x00})
	r := d.Feed(&buf)
	require.Equal(t, FrameReady, r.Status)
	require.Equal(t, []byte{1, 2, 3, 4}, r.Record)
}

func TestDecoderFragmentation(t *testing.T) {
	record := []byte{0x10, 0x06, 0x85, 0x7f, 0x00}
	frame := mustFrame(t, record)
	splits := len(frame) - 1

	for mask := 0; mask < 1<<uint(splits); mask++ {
		var chunks [][]byte
		start := 0
		for i := 0; i < splits; i++ {
			if mask&(1<<uint(i)) != 0 {
				chunks = append(chunks, frame[start:i+1])
				start = i + 1
			}
		}
		chunks = append(chunks, frame[start:])

		d := mustDecoder(t, len(record))
		var buf Buffer
		var results []Result
		for _, chunk := range chunks {
			buf.Write(chunk)
			for {
				r := d.Feed(&buf)
				if r.Status == NeedMoreData {
					break
				}
				results = append(results, Result{Status: r.Status, Record: append([]byte(nil), r.Record...)})
			}
		}
		require.Equalf(t, []Result{{Status: FrameReady, Record: record}}, results, "split mask %b", mask)
	}
}

func TestDecoderDecodeKeepsRemainder(t *testing.T) {
	d := mustDecoder(t, 4)
	in := append(mustFrame(t, []byte{1, 2, 3, 4}), mustFrame(t, []byte{5, 6, 7, 8})...)

	n, r := d.Decode(in)
	require.Equal(t, 8, n)
	require.Equal(t, FrameReady, r.Status)
	require.Equal(t, []byte{1, 2, 3, 4}, r.Record)

	n, r = d.Decode(in[n:])
	require.Equal(t, 8, n)
	require.Equal(t, FrameReady, r.Status)
	require.Equal(t, []byte{5, 6, 7, 8}, r.Record)

	n, r = d.Decode(nil)
	require.Zero(t, n)
	require.Equal(t, NeedMoreData, r.Status)
}

func TestDecoderRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, size := range []int{1, 2, 3, 4, 7, 14, 33, 128, 254, 255} {
		enc, err := NewEncoder(size)
		require.NoError(t, err)
		d := mustDecoder(t, size)
		for i := 0; i < 20; i++ {
			record := make([]byte, size)
			rnd.Read(record)
			frame, err := enc.Frame(record)
			require.NoError(t, err)

			n, r := d.Decode(frame)
			require.Equal(t, len(frame), n)
			require.Equalf(t, FrameReady, r.Status, "size %d iteration %d", size, i)
			require.Equal(t, record, r.Record)
		}
	}
}

func TestDecoderJunkNeverYieldsFrame(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	d := mustDecoder(t, 4)
	for i := 0; i < 4096; i++ {
		b := byte(rnd.Intn(256))
		if b == StartByte1 {
			continue
		}
		r := d.Parse(b)
		require.Equal(t, Result{}, r)
		require.Equal(t, StateStart1, d.State())
	}
}

func TestDecoderBitFlips(t *testing.T) {
	record := []byte{0xde, 0xad, 0xbe, 0xef}
	frame := mustFrame(t, record)
	for pos := HeaderLen; pos < len(frame); pos++ {
		for bit := uint(0); bit < 8; bit++ {
			corrupted := append([]byte(nil), frame...)
			corrupted[pos] ^= 1 << bit

			d := mustDecoder(t, len(record))
			n, r := d.Decode(corrupted)
			require.Equal(t, len(frame), n)
			require.Equalf(t, ChecksumMismatch, r.Status, "pos %d bit %d", pos, bit)
			require.ErrorIs(t, r.Err, ErrChecksumMismatch)
			require.Equal(t, StateStart1, d.State())
		}
	}
}

func TestDecoderLengthRejection(t *testing.T) {
	for l := 0; l < 256; l++ {
		if l == 4 {
			continue
		}
		d := mustDecoder(t, 4)
		in := []byte{0x06, 0x85, byte(l), 1, 2, 3, 4, 0x04}
		n, r := d.Decode(in)
		require.Equal(t, HeaderLen, n, "length %d", l)
		require.Equal(t, SizeMismatch, r.Status)
		require.ErrorIs(t, r.Err, ErrSizeMismatch)
		require.Equal(t, StateStart1, d.State())

		// the payload is not taken as an aligned frame.
		_, r = d.Decode(in[n:])
		require.Equal(t, NeedMoreData, r.Status)
	}
}

func TestDecoderReceive(t *testing.T) {
	d := mustDecoder(t, 4)
	var buf Buffer

	ok, err := d.Receive(&buf, make([]byte, 3))
	require.False(t, ok)
	require.Equal(t, ErrBufferTooSmall, err)

	out := make([]byte, 4)
	ok, err = d.Receive(&buf, out)
	require.False(t, ok)
	require.NoError(t, err)

	buf.Write([]byte{0x06, 0x85, 0x04, 1, 2, 3, 4, 0xff})
	ok, err = d.Receive(&buf, out)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	buf.Write([]byte{0x06, 0x85, 0x04, 9, 8, 7, 6})
	ok, err = d.Receive(&buf, out)
	require.False(t, ok)
	require.NoError(t, err)

	buf.Write([]byte{0x04 ^ 9 ^ 8 ^ 7 ^ 6})
	ok, err = d.Receive(&buf, out)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 8, 7, 6}, out)
}

func TestBuffer(t *testing.T) {
	var buf Buffer
	_, err := buf.ReadByte()
	require.Error(t, err)

	buf.Write([]byte{1, 2, 3, 4})
	require.Equal(t, 4, buf.Available())
	for i := byte(1); i <= 3; i++ {
		b, err := buf.ReadByte()
		require.NoError(t, err)
		require.Equal(t, i, b)
	}
	buf.Write([]byte{5})
	require.Equal(t, []byte{4, 5}, buf.Bytes())
	buf.Reset()
	require.Zero(t, buf.Available())
}
