package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldDescriptor(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    FieldDescriptor
		consume int
	}{
		{"int", "I", FieldDescriptor{Kind: FDInt}, 1},
		{"long", "J", FieldDescriptor{Kind: FDLong}, 1},
		{"class", "Ljava/lang/String;", FieldDescriptor{Kind: FDClassRef, ClassName: "java/lang/String"}, 18},
		{"array of int", "[I", FieldDescriptor{Kind: FDArray, Elem: &FieldDescriptor{Kind: FDInt}}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, n, err := ParseFieldDescriptor([]byte(c.input))
			require.NoError(t, err)
			assert.Equal(t, c.consume, n)
			assert.Equal(t, c.want.Kind, got.Kind)
			assert.Equal(t, c.want.ClassName, got.ClassName)
			assert.Equal(t, c.input[:c.consume], got.String())
		})
	}
}

func TestParseFieldDescriptorErrors(t *testing.T) {
	_, _, err := ParseFieldDescriptor(nil)
	assert.Equal(t, DescEmpty, err)

	_, _, err = ParseFieldDescriptor([]byte("Lno/terminator"))
	assert.Equal(t, DescInfiniteClassName, err)

	_, _, err = ParseFieldDescriptor([]byte("Q"))
	assert.Equal(t, DescUnknownType, err)
}

func TestUnitSizeAndByteSize(t *testing.T) {
	long := FieldDescriptor{Kind: FDLong}
	assert.Equal(t, 2, long.UnitSize())
	assert.Equal(t, 8, long.ByteSize())

	i := FieldDescriptor{Kind: FDInt}
	assert.Equal(t, 1, i.UnitSize())
	assert.Equal(t, 4, i.ByteSize())

	b := FieldDescriptor{Kind: FDByte}
	assert.Equal(t, 1, b.ByteSize())
}

func TestParseMethodDescriptor(t *testing.T) {
	md, err := ParseMethodDescriptor([]byte("(IJLjava/lang/String;)Z"))
	require.NoError(t, err)
	require.Len(t, md.Args, 3)
	assert.Equal(t, FDInt, md.Args[0].Kind)
	assert.Equal(t, FDLong, md.Args[1].Kind)
	assert.Equal(t, FDClassRef, md.Args[2].Kind)
	require.NotNil(t, md.Return)
	assert.Equal(t, FDBoolean, md.Return.Kind)
	assert.Equal(t, "(IJLjava/lang/String;)Z", md.String())
	// int + long(2 slots) + ref = 4 slots
	assert.Equal(t, 4, md.ArgSlotCount())
}

func TestParseMethodDescriptorVoidReturn(t *testing.T) {
	md, err := ParseMethodDescriptor([]byte("([Ljava/lang/String;)V"))
	require.NoError(t, err)
	assert.Nil(t, md.Return)
	assert.Equal(t, "([Ljava/lang/String;)V", md.String())
	assert.Equal(t, "void main(java.lang.String[])", md.DisplayType("main"))
}

func TestParseMethodDescriptorErrors(t *testing.T) {
	_, err := ParseMethodDescriptor([]byte("I"))
	assert.Equal(t, DescNoArguments, err)

	_, err = ParseMethodDescriptor([]byte("(I"))
	assert.Equal(t, DescInfiniteArguments, err)
}

func TestParseAnyDescriptor(t *testing.T) {
	method, field, err := ParseAnyDescriptor([]byte("()V"))
	require.NoError(t, err)
	assert.NotNil(t, method)
	assert.Nil(t, field)

	method, field, err = ParseAnyDescriptor([]byte("I"))
	require.NoError(t, err)
	assert.Nil(t, method)
	assert.NotNil(t, field)
	assert.Equal(t, FDInt, field.Kind)
}
