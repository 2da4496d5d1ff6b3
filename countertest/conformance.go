package countertest

import (
	"context"
	"math"
	"testing"

	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// BindingsFactory returns the bindings under test. Called once per test.
type BindingsFactory func(t *testing.T) ports.CounterBindings

// ConformanceSuite checks that a binding backend behaves like the reference
// counter engine. Run it with RunConformance.
type ConformanceSuite struct {
	suite.Suite
	factory  BindingsFactory
	bindings ports.CounterBindings
	ctx      context.Context
}

// RunConformance runs the conformance suite against bindings from factory.
func RunConformance(t *testing.T, factory BindingsFactory) {
	t.Helper()
	suite.Run(t, &ConformanceSuite{factory: factory})
}

func (s *ConformanceSuite) SetupTest() {
	s.ctx = context.Background()
	s.bindings = s.factory(s.T())
}

func (s *ConformanceSuite) create(args entities.CounterArgs) entities.NativeHandle {
	h, err := s.bindings.Create(s.ctx, args)
	s.Require().NoError(err)
	s.Require().False(h.IsNull(), "create returned the null handle")
	t, bindings, ctx := s.T(), s.bindings, s.ctx
	t.Cleanup(func() {
		require.NoError(t, bindings.Destroy(ctx, h))
	})
	return h
}

func (s *ConformanceSuite) TestCreateCopiesArgs() {
	h := s.create(entities.CounterArgs{Init: 10, By: 3})

	v, err := s.bindings.Value(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(uint32(10), v)

	snap, err := s.bindings.Snapshot(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(entities.CounterSnapshot{Val: 10, By: 3}, snap)
}

func (s *ConformanceSuite) TestStepOperations() {
	h := s.create(entities.CounterArgs{Init: 5, By: 2})

	v, err := s.bindings.Increment(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(uint32(7), v)

	v, err = s.bindings.Decrement(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(uint32(5), v)

	v, err = s.bindings.IncrementBy(s.ctx, h, 100)
	s.Require().NoError(err)
	s.Equal(uint32(105), v)

	v, err = s.bindings.DecrementBy(s.ctx, h, 5)
	s.Require().NoError(err)
	s.Equal(uint32(100), v)

	v, err = s.bindings.IncrementBy(s.ctx, h, 0)
	s.Require().NoError(err)
	s.Equal(uint32(100), v, "zero step leaves the value unchanged")
}

func (s *ConformanceSuite) TestDecrementWraps() {
	h := s.create(entities.CounterArgs{Init: 1, By: 2})

	v, err := s.bindings.Decrement(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(uint32(math.MaxUint32), v)

	v, err = s.bindings.IncrementBy(s.ctx, h, 1)
	s.Require().NoError(err)
	s.Equal(uint32(0), v)
}

func (s *ConformanceSuite) TestByMany() {
	h := s.create(entities.CounterArgs{})

	v, err := s.bindings.IncrementByMany(s.ctx, h, []uint32{1, 2, 3, 4, 5, 6, 7, 8})
	s.Require().NoError(err)
	s.Equal(uint32(36), v)

	v, err = s.bindings.DecrementByMany(s.ctx, h, []uint32{6, 10})
	s.Require().NoError(err)
	s.Equal(uint32(20), v)

	v, err = s.bindings.IncrementByMany(s.ctx, h, []uint32{7})
	s.Require().NoError(err)
	s.Equal(uint32(27), v)
}

func (s *ConformanceSuite) TestByManyDoesNotModifyInput() {
	h := s.create(entities.CounterArgs{})
	values := []uint32{9, 8, 7}

	_, err := s.bindings.IncrementByMany(s.ctx, h, values)
	s.Require().NoError(err)
	s.Equal([]uint32{9, 8, 7}, values)
}

func (s *ConformanceSuite) TestPositions() {
	h := s.create(entities.CounterArgs{})

	got, err := s.bindings.Positions(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(DefaultPositions, got)

	got[0].X = 42
	again, err := s.bindings.Positions(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(DefaultPositions, again, "returned positions must be an owned copy")
}

func (s *ConformanceSuite) TestCountersAreIndependent() {
	a := s.create(entities.CounterArgs{Init: 1, By: 1})
	b := s.create(entities.CounterArgs{Init: 100, By: 10})
	s.NotEqual(a, b)

	_, err := s.bindings.Increment(s.ctx, a)
	s.Require().NoError(err)

	vb, err := s.bindings.Value(s.ctx, b)
	s.Require().NoError(err)
	s.Equal(uint32(100), vb)
}

func (s *ConformanceSuite) TestCreateDestroyCycle() {
	for i := 0; i < 64; i++ {
		h, err := s.bindings.Create(s.ctx, entities.CounterArgs{Init: uint32(i)})
		s.Require().NoError(err)
		s.Require().False(h.IsNull())

		v, err := s.bindings.Value(s.ctx, h)
		s.Require().NoError(err)
		s.Equal(uint32(i), v)

		s.Require().NoError(s.bindings.Destroy(s.ctx, h))
	}
}
