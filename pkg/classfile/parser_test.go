package classfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalClassFile builds a synthetic, hand-assembled .class byte buffer:
// one Utf8 "Foo" constant, one Class constant naming it, no super class,
// no interfaces/fields/methods/attributes. Real javac-compiled fixtures
// aren't available in this environment, so the decoder pipeline is
// exercised end to end against bytes assembled directly here.
func minimalClassFile() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE}) // magic
	buf.Write([]byte{0x00, 0x00})             // minor
	buf.Write([]byte{0x00, 0x34})             // major = 52
	buf.Write([]byte{0x00, 0x03})             // constant_pool_count = 3 (entries 1,2)
	buf.Write([]byte{TagUtf8, 0x00, 0x03, 'F', 'o', 'o'})
	buf.Write([]byte{TagClass, 0x00, 0x01})
	buf.Write([]byte{0x00, 0x21}) // access_flags: public | super
	buf.Write([]byte{0x00, 0x02}) // this_class = 2
	buf.Write([]byte{0x00, 0x00}) // super_class = 0
	buf.Write([]byte{0x00, 0x00}) // interfaces_count
	buf.Write([]byte{0x00, 0x00}) // fields_count
	buf.Write([]byte{0x00, 0x00}) // methods_count
	buf.Write([]byte{0x00, 0x00}) // attributes_count
	return buf.Bytes()
}

func TestParseMinimalClassFile(t *testing.T) {
	cf, err := Parse(bytes.NewReader(minimalClassFile()))
	require.NoError(t, err)

	assert.Equal(t, uint16(52), cf.MajorVersion)
	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)

	super, err := cf.SuperClassName()
	require.NoError(t, err)
	assert.Equal(t, "", super)

	assert.Empty(t, cf.Fields)
	assert.Empty(t, cf.Methods)
}

func TestParseInvalidMagic(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestParseTruncatedInput(t *testing.T) {
	full := minimalClassFile()
	_, err := Parse(bytes.NewReader(full[:10]))
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
}

func TestFindMethod(t *testing.T) {
	cf := &ClassFile{
		Methods: []MethodInfo{
			{Name: "main", Descriptor: "([Ljava/lang/String;)V"},
			{Name: "add", Descriptor: "(II)I"},
		},
	}
	assert.NotNil(t, cf.FindMethod("add", "(II)I"))
	assert.Nil(t, cf.FindMethod("add", "(JJ)J"))
	assert.NotNil(t, cf.FindMethodByName("main"))
	assert.Nil(t, cf.FindMethodByName("missing"))
}
