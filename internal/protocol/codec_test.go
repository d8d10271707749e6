package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
	}{
		{name: "empty data", env: NewEnvelope(ClearQuestion)},
		{name: "nil data", env: Envelope{Type: AdminConnected}},
		{name: "question", env: NewEnvelope(PopQuestion).
			With(KeyQuestionID, StringValue("q1")).
			With(KeyQuestionText, StringValue("Capital of France?"))},
		{name: "wager", env: NewEnvelope(RequireWager).With(KeyMaxWager, IntValue(500))},
		{name: "float widens", env: NewEnvelope(UpdateScore).With(KeyScore, FloatValue(1200))},
		{name: "nested", env: NewEnvelope(Ping).
			With("meta", MapValue(Data{
				"seq":   IntValue(7),
				"ratio": FloatValue(0.25),
				"ok":    BoolValue(true),
				"tags":  ListValue(StringValue("a"), IntValue(2)),
				"none":  NullValue(),
			}))},
		{name: "unknown type", env: NewEnvelope(MessageType(99)).With("x", StringValue("y"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.env)
			require.NoError(t, err)

			got, err := Decode(b)
			require.NoError(t, err)
			require.Equal(t, tc.env.Type, got.Type)
			require.NotNil(t, got.Data)

			want := tc.env.Data
			if want == nil {
				want = Data{}
			}
			require.True(t, want.Equal(got.Data), "want %v, got %v", want, got.Data)
		})
	}
}

func TestEncodeWireShape(t *testing.T) {
	b, err := Encode(NewPlayerEnteredWager(250))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":43,"data":{"amount":250}}`, string(b))

	b, err = Encode(Envelope{Type: PlayerConnected})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":12,"data":{}}`, string(b))
}

func TestDecodeUnknownTypeSucceeds(t *testing.T) {
	env, err := Decode([]byte(`{"type":77,"data":{"whatever":[1,2,3]}}`))
	require.NoError(t, err)
	require.Equal(t, MessageType(77), env.Type)
	require.False(t, env.Type.Known())
	require.Equal(t, "Unhandled(77)", env.Type.String())
	require.True(t, env.Data.Has("whatever"))
}

func TestDecodeToleratesNumericCoercion(t *testing.T) {
	env, err := Decode([]byte(`{"type":32.0,"data":{"max_wager":500.0}}`))
	require.NoError(t, err)
	require.Equal(t, RequireWager, env.Type)

	maxWager, err := env.Data.Int(KeyMaxWager)
	require.NoError(t, err)
	require.Equal(t, int64(500), maxWager)
}

func TestDecodeMissingData(t *testing.T) {
	for _, in := range []string{`{"type":31}`, `{"type":31,"data":null}`} {
		env, err := Decode([]byte(in))
		require.NoError(t, err, in)
		require.Equal(t, ClearQuestion, env.Type)
		require.NotNil(t, env.Data)
		require.Empty(t, env.Data)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{name: "not json", in: `nope`},
		{name: "missing type", in: `{"data":{}}`, want: ErrMissingType},
		{name: "null type", in: `{"type":null}`, want: ErrMissingType},
		{name: "string type", in: `{"type":"Ping"}`, want: ErrBadType},
		{name: "fractional type", in: `{"type":1.5}`, want: ErrBadType},
		{name: "type beyond int64", in: `{"type":1e19}`, want: ErrBadType},
		{name: "data not object", in: `{"type":1,"data":[1]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.in))
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestIntRejectsValuesBeyondInt64(t *testing.T) {
	env, err := Decode([]byte(`{"type":50,"data":{"score":9223372036854775808,"low":-9223372036854775808,"big":1e300}}`))
	require.NoError(t, err)

	_, err = env.Data.Int(KeyScore)
	var typeErr *TypeError
	require.True(t, errors.As(err, &typeErr), "2^63 must not wrap to a negative score")

	_, err = env.Data.Int("big")
	require.True(t, errors.As(err, &typeErr))

	low, err := env.Data.Int("low")
	require.NoError(t, err)
	require.Equal(t, int64(-9223372036854775808), low)

	v, ok := FloatValue(1 << 62).AsInt()
	require.True(t, ok)
	require.Equal(t, int64(1<<62), v)
}

func TestDataTypedAccess(t *testing.T) {
	env, err := Decode([]byte(`{"type":0,"data":{"error":"bad key","score":"ten","n":3,"f":2.5,"m":{"k":"v"},"b":false}}`))
	require.NoError(t, err)

	msg, err := env.Data.String(KeyError)
	require.NoError(t, err)
	require.Equal(t, "bad key", msg)

	_, err = env.Data.Int(KeyScore)
	var typeErr *TypeError
	require.True(t, errors.As(err, &typeErr))
	require.Equal(t, KindInt, typeErr.Want)
	require.Equal(t, KindString, typeErr.Got)

	_, err = env.Data.Int("f")
	require.True(t, errors.As(err, &typeErr), "fractional float is not an int")

	f, err := env.Data.Float("n")
	require.NoError(t, err)
	require.Equal(t, 3.0, f)

	m, err := env.Data.Map("m")
	require.NoError(t, err)
	v, err := m.String("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	b, err := env.Data.Bool("b")
	require.NoError(t, err)
	require.False(t, b)

	_, err = env.Data.String("absent")
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestStampCopiesData(t *testing.T) {
	ping := NewEnvelope(Ping).With("nonce", StringValue("abc"))
	stamped := ping.Stamp("GAME1", 7, "Ada")

	require.False(t, ping.Data.Has(KeyGameKey), "original must stay untouched")
	key, err := stamped.Data.String(KeyGameKey)
	require.NoError(t, err)
	require.Equal(t, "GAME1", key)
	id, err := stamped.Data.Int(KeyPlayerID)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	nonce, err := stamped.Data.String("nonce")
	require.NoError(t, err)
	require.Equal(t, "abc", nonce)
}

func TestValueJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"a":[1,"x",null]}`), &v))
	m, ok := v.AsMap()
	require.True(t, ok)
	list, ok := m["a"].AsList()
	require.True(t, ok)
	require.Len(t, list, 3)
	require.Equal(t, KindNull, list[2].Kind())
	require.Equal(t, `{"a":[1,"x",null]}`, v.String())
}
