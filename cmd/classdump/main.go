// Command classdump is the disassembler CLI (spec §6 "CLI
// (disassembler)"): for each named class file it prints version,
// access flags, this/super, interfaces, fields, methods, and
// attributes, descending into Code (pc-labeled, constant-pool
// annotated), LineNumberTable, LocalVariableTable, and StackMapTable.
// It decodes only -- no Runtime/loader is involved, so a class whose
// superclass cannot be resolved still dumps fine.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daimatz/classvm/pkg/classfile"
)

var dumpConstantPool bool

func accessFlagNames(flags uint16) string {
	var names []string
	for _, f := range []struct {
		bit  uint16
		name string
	}{
		{classfile.AccPublic, "public"},
		{classfile.AccPrivate, "private"},
		{classfile.AccProtected, "protected"},
		{classfile.AccStatic, "static"},
		{classfile.AccFinal, "final"},
		{classfile.AccSuper, "super"},
		{classfile.AccVolatile, "volatile"},
		{classfile.AccTransient, "transient"},
		{classfile.AccNative, "native"},
		{classfile.AccInterface, "interface"},
		{classfile.AccAbstract, "abstract"},
		{classfile.AccStrict, "strict"},
		{classfile.AccSynthetic, "synthetic"},
		{classfile.AccAnnotation, "annotation"},
		{classfile.AccEnum, "enum"},
	} {
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, " ")
}

func dumpConstant(pool []classfile.ConstantPoolEntry, i int, c classfile.ConstantPoolEntry) {
	switch v := c.(type) {
	case nil:
		fmt.Printf("  #%-3d (unused)\n", i)
	case *classfile.ConstantGap:
		fmt.Printf("  #%-3d Gap\n", i)
	case *classfile.ConstantUtf8:
		fmt.Printf("  #%-3d Utf8               %q\n", i, v.Value)
	case *classfile.ConstantInteger:
		fmt.Printf("  #%-3d Integer            %d\n", i, v.Value)
	case *classfile.ConstantFloat:
		fmt.Printf("  #%-3d Float              %g\n", i, v.Value)
	case *classfile.ConstantLong:
		fmt.Printf("  #%-3d Long               %d\n", i, v.Value)
	case *classfile.ConstantDouble:
		fmt.Printf("  #%-3d Double             %g\n", i, v.Value)
	case *classfile.ConstantClass:
		fmt.Printf("  #%-3d Class              #%d\n", i, v.NameIndex)
	case *classfile.ConstantString:
		fmt.Printf("  #%-3d String             #%d\n", i, v.StringIndex)
	case *classfile.ConstantFieldref:
		fmt.Printf("  #%-3d Fieldref           #%d.#%d\n", i, v.ClassIndex, v.NameAndTypeIndex)
	case *classfile.ConstantMethodref:
		fmt.Printf("  #%-3d Methodref          #%d.#%d\n", i, v.ClassIndex, v.NameAndTypeIndex)
	case *classfile.ConstantInterfaceMethodref:
		fmt.Printf("  #%-3d InterfaceMethodref #%d.#%d\n", i, v.ClassIndex, v.NameAndTypeIndex)
	case *classfile.ConstantNameAndType:
		fmt.Printf("  #%-3d NameAndType        #%d:#%d\n", i, v.NameIndex, v.DescriptorIndex)
	case *classfile.ConstantMethodHandle:
		fmt.Printf("  #%-3d MethodHandle       kind=%d #%d\n", i, v.ReferenceKind, v.ReferenceIndex)
	case *classfile.ConstantMethodType:
		fmt.Printf("  #%-3d MethodType         #%d\n", i, v.DescriptorIndex)
	case *classfile.ConstantDynamic:
		fmt.Printf("  #%-3d Dynamic            bsm=#%d #%d\n", i, v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	case *classfile.ConstantInvokeDynamic:
		fmt.Printf("  #%-3d InvokeDynamic      bsm=#%d #%d\n", i, v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	case *classfile.ConstantModule:
		fmt.Printf("  #%-3d Module             #%d\n", i, v.NameIndex)
	case *classfile.ConstantPackage:
		fmt.Printf("  #%-3d Package            #%d\n", i, v.NameIndex)
	default:
		fmt.Printf("  #%-3d ?\n", i)
	}
}

// cpAnnotation renders a short human-readable gloss of a constant-pool
// index for a Code disassembly line, the way a resolved fieldref/
// methodref/class operand is normally shown next to its raw index.
func cpAnnotation(pool []classfile.ConstantPoolEntry, index uint16) string {
	if int(index) >= len(pool) || pool[index] == nil {
		return ""
	}
	switch pool[index].(type) {
	case *classfile.ConstantClass:
		name, err := classfile.GetClassName(pool, index)
		if err != nil {
			return ""
		}
		return "// class " + name
	case *classfile.ConstantFieldref:
		ref, err := classfile.ResolveFieldref(pool, index)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("// field %s.%s:%s", ref.ClassName, ref.FieldName, ref.Descriptor)
	case *classfile.ConstantMethodref:
		ref, err := classfile.ResolveMethodref(pool, index)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("// method %s.%s:%s", ref.ClassName, ref.MethodName, ref.Descriptor)
	case *classfile.ConstantInterfaceMethodref:
		ref, err := classfile.ResolveInterfaceMethodref(pool, index)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("// interface method %s.%s:%s", ref.ClassName, ref.MethodName, ref.Descriptor)
	case *classfile.ConstantString:
		s, ok := pool[index].(*classfile.ConstantString)
		if !ok {
			return ""
		}
		text, err := classfile.GetUtf8(pool, s.StringIndex)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("// string %q", text)
	default:
		return ""
	}
}

// dumpCode pretty-prints one Code attribute: pc-labeled mnemonics with
// immediates decoded per the opcode table (spec §4.4) and a
// constant-pool gloss trailing any 2-byte cp-index operand.
func dumpCode(pool []classfile.ConstantPoolEntry, code *classfile.CodeAttribute) {
	fmt.Printf("      stack=%d, locals=%d\n", code.MaxStack, code.MaxLocals)
	b := code.Code
	for pc := 0; pc < len(b); {
		op := b[pc]
		info := classfile.Opcodes[op]
		line := fmt.Sprintf("      %4d: %s", pc, info.Mnemonic)
		switch {
		case info.Immediates < 0:
			switch op {
			case classfile.OpTableswitch, classfile.OpLookupswitch:
				// Variable-length: skip to the next 4-byte boundary past
				// the opcode, then a default offset and either a
				// [low,high] pair or npairs count.
				pad := (4 - (pc+1)%4) % 4
				cursor := pc + 1 + pad + 4
				if op == classfile.OpTableswitch {
					low := int32(be32(b, cursor))
					high := int32(be32(b, cursor+4))
					n := int(high-low) + 1
					cursor += 8 + 4*n
				} else {
					npairs := int(be32(b, cursor))
					cursor += 4 + 8*npairs
				}
				fmt.Println(line)
				pc = cursor
				continue
			case classfile.OpWide:
				sub := b[pc+1]
				if sub == classfile.OpIinc {
					fmt.Println(line)
					pc += 6
				} else {
					fmt.Println(line)
					pc += 4
				}
				continue
			default:
				fmt.Println(line)
				pc++
				continue
			}
		case info.Immediates == 0:
			fmt.Println(line)
			pc++
		case info.Immediates == 1:
			fmt.Printf("%s %d\n", line, b[pc+1])
			pc += 2
		case info.Immediates == 2:
			idx := be16(b, pc+1)
			if isCPRefOpcode(op) {
				note := cpAnnotation(pool, idx)
				fmt.Printf("%s #%d %s\n", line, idx, note)
			} else {
				fmt.Printf("%s %d\n", line, int16(idx))
			}
			pc += 3
		case info.Immediates == 3:
			fmt.Printf("%s #%d %d\n", line, be16(b, pc+1), b[pc+3])
			pc += 4
		case info.Immediates == 4:
			idx := be16(b, pc+1)
			fmt.Printf("%s #%d %s\n", line, idx, cpAnnotation(pool, idx))
			pc += 5
		}
	}

	for _, h := range code.ExceptionHandlers {
		catch := "any"
		if h.CatchType != 0 {
			name, err := classfile.GetClassName(pool, h.CatchType)
			if err == nil {
				catch = name
			}
		}
		fmt.Printf("      exception: start=%d end=%d handler=%d catch=%s\n", h.StartPC, h.EndPC, h.HandlerPC, catch)
	}
	if len(code.LineNumbers) > 0 {
		fmt.Println("      LineNumberTable:")
		for _, ln := range code.LineNumbers {
			fmt.Printf("        pc=%d line=%d\n", ln.StartPC, ln.LineNumber)
		}
	}
	if len(code.LocalVariables) > 0 {
		fmt.Println("      LocalVariableTable:")
		for _, lv := range code.LocalVariables {
			fmt.Printf("        start=%d length=%d slot=%d %s %s\n", lv.StartPC, lv.Length, lv.Index, lv.Descriptor, lv.Name)
		}
	}
	if len(code.StackMapTable) > 0 {
		fmt.Println("      StackMapTable:")
		for _, f := range code.StackMapTable {
			fmt.Printf("        frame_type=%d offset_delta=%d locals=%d stack=%d\n",
				f.FrameType, f.OffsetDelta, len(f.Locals), len(f.Stack))
		}
	}
}

func isCPRefOpcode(op byte) bool {
	switch op {
	case classfile.OpLdcW, classfile.OpGetstatic, classfile.OpPutstatic,
		classfile.OpGetfield, classfile.OpPutfield,
		classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokestatic,
		classfile.OpNew, classfile.OpAnewarray, classfile.OpCheckcast, classfile.OpInstanceof,
		classfile.OpLdc2W:
		return true
	default:
		return false
	}
}

func be16(b []byte, i int) uint16 { return uint16(b[i])<<8 | uint16(b[i+1]) }
func be32(b []byte, i int) uint32 {
	return uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
}

func dumpFile(path string) error {
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return err
	}

	className, _ := cf.ClassName()
	superName, _ := cf.SuperClassName()
	ifaces, _ := cf.InterfaceNames()

	fmt.Printf("%s\n", path)
	fmt.Printf("  version: %d.%d\n", cf.MajorVersion, cf.MinorVersion)
	fmt.Printf("  access: %s\n", accessFlagNames(cf.AccessFlags))
	fmt.Printf("  this_class: %s\n", className)
	fmt.Printf("  super_class: %s\n", superName)
	if len(ifaces) > 0 {
		fmt.Printf("  interfaces: %s\n", strings.Join(ifaces, ", "))
	}

	if dumpConstantPool {
		fmt.Println("  constant pool:")
		for i, c := range cf.ConstantPool {
			if i == 0 {
				continue
			}
			dumpConstant(cf.ConstantPool, i, c)
		}
	}

	fmt.Println("  fields:")
	for _, f := range cf.Fields {
		fmt.Printf("    %s %s %s\n", accessFlagNames(f.AccessFlags), f.Descriptor, f.Name)
	}

	fmt.Println("  methods:")
	for _, m := range cf.Methods {
		fmt.Printf("    %s %s%s\n", accessFlagNames(m.AccessFlags), m.Name, m.Descriptor)
		if m.Code != nil {
			dumpCode(cf.ConstantPool, m.Code)
		}
	}

	return nil
}

func run(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		if err := dumpFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "classdump [-c] <classfile> [<classfile>...]",
		Short:        "Prints a human-readable dump of one or more class files",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().BoolVarP(&dumpConstantPool, "constants", "c", false, "also dump the constant pool")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
