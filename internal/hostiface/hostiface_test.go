package hostiface_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/hostiface"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/proto"
	"github.com/tsgates/pcodec/internal/sla"
)

// fakeCommentDB is a minimal in-memory CommentDB, enough to confirm the
// interface shape is implementable and behaves as documented.
type fakeCommentDB struct {
	comments []hostiface.Comment
}

func (c *fakeCommentDB) Warning(text string, addr sla.Address) {
	c.comments = append(c.comments, hostiface.Comment{Kind: hostiface.CommentWarning, Addr: addr, Text: text})
}

func (c *fakeCommentDB) WarningHeader(text string) {
	c.comments = append(c.comments, hostiface.Comment{Kind: hostiface.CommentWarningHeader, Text: text})
}

func (c *fakeCommentDB) Comments(kind hostiface.CommentKind) []hostiface.Comment {
	var out []hostiface.Comment
	for _, cm := range c.comments {
		if cm.Kind == kind {
			out = append(out, cm)
		}
	}
	return out
}

func TestCommentDBFiltersByKind(t *testing.T) {
	var db hostiface.CommentDB = &fakeCommentDB{}
	db.Warning("pointer size mismatch at LOAD", sla.Address{})
	db.WarningHeader("recovered with reduced confidence")

	require.Len(t, db.Comments(hostiface.CommentWarning), 1)
	require.Len(t, db.Comments(hostiface.CommentWarningHeader), 1)
	require.Len(t, db.Comments(hostiface.CommentUser), 0)
}

// fakeCdeclModel is a trivial stack-only PrototypeModel: every parameter
// is assigned successive stack slots, confirming PrototypeModel's shape
// lines up with internal/proto's own vocabulary (Storage, Parameter,
// ParamTrial) with no adapter needed.
type fakeCdeclModel struct {
	space    *sla.Space
	wordSize int
}

func (m *fakeCdeclModel) Name() string { return "__cdecl" }

func (m *fakeCdeclModel) AssignStorage(params []proto.Parameter, output proto.Parameter) (*proto.FuncProto, error) {
	p := proto.NewFuncProto("", m.Name())
	assigned := make([]proto.Parameter, len(params))
	for i, param := range params {
		param.Storage = proto.Storage{Addr: sla.Address{Space: m.space, Offset: uint64(i * m.wordSize)}, Size: m.wordSize}
		assigned[i] = param
	}
	p.SetParams(assigned)
	p.SetOutput(output)
	return p, nil
}

func (m *fakeCdeclModel) DeriveInputMap(trial *proto.ParamTrial) (proto.Storage, bool) {
	return trial.Storage, true
}

func (m *fakeCdeclModel) DeriveOutputMap(ret proto.Parameter) (proto.Storage, bool) {
	return ret.Storage, true
}

func (m *fakeCdeclModel) AssumedInputExtension(size int) (pcode.Opcode, int, bool) {
	if size < m.wordSize {
		return pcode.INT_ZEXT, m.wordSize, true
	}
	return 0, 0, false
}

func (m *fakeCdeclModel) AssumedOutputExtension(size int) (pcode.Opcode, int, bool) {
	return m.AssumedInputExtension(size)
}

func (m *fakeCdeclModel) PossibleInputParam(storage proto.Storage) bool {
	return storage.Addr.Space == m.space
}

func (m *fakeCdeclModel) UnjustifiedInputParam(storage proto.Storage) bool {
	return !m.PossibleInputParam(storage)
}

func TestPrototypeModelAssignsSuccessiveStackSlots(t *testing.T) {
	sp := sla.NewManager()
	stack := sp.AddSpace("stack", 1, 8, false, sla.SpaceProcessor)
	var model hostiface.PrototypeModel = &fakeCdeclModel{space: stack, wordSize: 4}

	params := []proto.Parameter{
		{Name: "a", Type: datatype.NewInt(4)},
		{Name: "b", Type: datatype.NewInt(4)},
	}
	recovered, err := model.AssignStorage(params, proto.Parameter{Name: "ret", Type: datatype.NewInt(4)})
	require.NoError(t, err)
	require.Equal(t, uint64(0), recovered.Params[0].Storage.Addr.Offset)
	require.Equal(t, uint64(4), recovered.Params[1].Storage.Addr.Offset)

	op, size, ok := model.AssumedInputExtension(1)
	require.True(t, ok)
	require.Equal(t, pcode.INT_ZEXT, op)
	require.Equal(t, 4, size)
}
