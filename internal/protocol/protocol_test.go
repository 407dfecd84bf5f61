package protocol

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/framing"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

func TestParseOp_AllCodes(t *testing.T) {
	for op, code := range opCodes {
		assert.Equal(t, op, ParseOp(code))
		assert.Equal(t, code, op.String())
	}
	assert.Equal(t, OpUnknown, ParseOp("HACKME"))
	assert.Equal(t, OpUnknown, ParseOp(""))
	assert.True(t, OpExit.IsRequest())
	assert.False(t, OpBye.IsRequest())
}

func TestMessage_EncodeDecode(t *testing.T) {
	m := NewMessage(OpRegister, "alice", "pw", "a@b.c")
	assert.Equal(t, "REGISA~alice~pw~a@b.c", string(m.Encode()))

	d := Decode(m.Encode())
	assert.Equal(t, OpRegister, d.Op)
	assert.Equal(t, []string{"alice", "pw", "a@b.c"}, d.Fields)
	assert.Equal(t, "", d.Field(5))

	bare := Decode([]byte("EXITCL"))
	assert.Equal(t, OpExit, bare.Op)
	assert.Empty(t, bare.Fields)

	unk := Decode([]byte("FOOBAR~x"))
	assert.Equal(t, OpUnknown, unk.Op)
	assert.Equal(t, "FOOBAR", unk.Code)

	assert.True(t, BoolReply(OpTrainReady, true).Bool())
	assert.Equal(t, "TRAINE~FALSE", string(BoolReply(OpTrainReady, false).Encode()))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ValidateRegistration("alice", "p@ss w0rd!", "alice@example.com"))
	assert.ErrorIs(t, ValidateCredentials("al~ice", "pw"), common.ErrReservedSeparator)
	assert.ErrorIs(t, ValidateCredentials("alice", "p~w"), common.ErrReservedSeparator)
	assert.ErrorIs(t, ValidateCredentials("", "pw"), common.ErrEmptyField)
	assert.ErrorIs(t, ValidateRegistration("alice", "pw", "a~@b.c"), common.ErrReservedSeparator)
	assert.ErrorIs(t, ValidateRegistration("alice", "pw", "not-an-email"), common.ErrInvalidEmail)
}

func TestBlobs(t *testing.T) {
	dots := []motion.Dot{{X: 1, Y: 2, V: 3.5}, {X: 1919, Y: 1079, V: 0}}
	s, err := EncodeDots(dots)
	require.NoError(t, err)
	assert.NotContains(t, s, common.FieldSeparator)

	got, err := DecodeDots(s)
	require.NoError(t, err)
	assert.Equal(t, dots, got)

	names, err := EncodeNames(nil)
	require.NoError(t, err)
	list, err := DecodeNames(names)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = DecodeDots("!!!")
	assert.ErrorIs(t, err, ErrBadBlob)
	_, err = DecodeNames("e30=") // {}
	assert.ErrorIs(t, err, ErrBadBlob)
}

func TestChunkDots(t *testing.T) {
	dots := make([]motion.Dot, 250)
	chunks := ChunkDots(dots, BlockSize)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[2], 50)

	assert.Empty(t, ChunkDots(nil, BlockSize))
}

func pipeChannels(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type res struct {
		ch  *Channel
		err error
	}
	srvDone := make(chan res, 1)
	go func() {
		ch, err := HandshakeServer(ctx, b)
		srvDone <- res{ch, err}
	}()

	cli, err := HandshakeClient(ctx, a)
	require.NoError(t, err)
	r := <-srvDone
	require.NoError(t, r.err)
	return cli, r.ch
}

func TestHandshake_KeyAgreement(t *testing.T) {
	cli, srv := pipeChannels(t)

	var printable strings.Builder
	for c := byte(0x20); c < 0x7f; c++ {
		if c != '~' {
			printable.WriteByte(c)
		}
	}

	go func() {
		m, err := srv.Receive()
		if err != nil {
			return
		}
		_ = srv.Send(NewMessage(OpLoginReply, m.Fields...))
	}()

	reply, err := cli.Request(context.Background(), NewMessage(OpLogin, printable.String(), "pw"), OpLoginReply)
	require.NoError(t, err)
	assert.Equal(t, []string{printable.String(), "pw"}, reply.Fields)
}

func TestRequest_UnexpectedReply(t *testing.T) {
	cli, srv := pipeChannels(t)

	go func() {
		if _, err := srv.Receive(); err == nil {
			_ = srv.Send(NewMessage(OpServerError, "boom"))
		}
	}()

	_, err := cli.Request(context.Background(), NewMessage(OpDefend), OpNetworkReply, OpNoData)
	assert.ErrorIs(t, err, ErrUnexpectedReply)
}

func TestHandshake_MissingTag(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		_ = framing.Send(a, []byte("HELLO-WORLD~junk"))
	}()

	_, err := HandshakeServer(context.Background(), b)
	assert.ErrorIs(t, err, ErrHandshake)
}

func TestHandshake_ContextCancel(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := HandshakeServer(ctx, b)
	assert.ErrorIs(t, err, ErrHandshake)
}

func TestReceive_IdleTimeout(t *testing.T) {
	_, srv := pipeChannels(t)
	srv.SetIdleTimeout(30 * time.Millisecond)

	_, err := srv.Receive()
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}
