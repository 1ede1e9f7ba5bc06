package nmcperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestClassifyMapsNotFound(t *testing.T) {
	raw := apierrors.NewNotFound(schema.GroupResource{Resource: "mcpservers"}, "fetch")
	classified := Classify(raw)
	assert.Equal(t, KindNotFound, classified.Kind)
	assert.True(t, Is(classified, KindNotFound))
}

func TestClassifyMapsConflict(t *testing.T) {
	raw := apierrors.NewConflict(schema.GroupResource{Resource: "mcpservers"}, "fetch", errors.New("stale"))
	classified := Classify(raw)
	assert.Equal(t, KindConflict, classified.Kind)
}

func TestClassifyMapsInvalid(t *testing.T) {
	raw := apierrors.NewInvalid(schema.GroupKind{Kind: "MCPServer"}, "fetch", nil)
	classified := Classify(raw)
	assert.Equal(t, KindValidation, classified.Kind)
}

func TestClassifyPassesThroughExistingError(t *testing.T) {
	original := New(KindPoolExhausted, "pool.maxActive reached", nil)
	classified := Classify(original)
	assert.Same(t, original, classified)
}

func TestClassifyDefaultsUnrecognizedErrorsToTransient(t *testing.T) {
	classified := Classify(errors.New("boom"))
	assert.Equal(t, KindTransientAPI, classified.Kind)
}

func TestClassifyNilReturnsNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindNotFound))
}

func TestErrorFormatsCauseWhenPresent(t *testing.T) {
	err := New(KindFatal, "exploded", errors.New("root cause"))
	assert.Equal(t, fmt.Sprintf("%s: exploded: root cause", KindFatal), err.Error())
}

func TestErrorFormatsWithoutCause(t *testing.T) {
	err := New(KindValidation, "bad spec", nil)
	assert.Equal(t, fmt.Sprintf("%s: bad spec", KindValidation), err.Error())
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root")
	err := New(KindFatal, "wrapped", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}
