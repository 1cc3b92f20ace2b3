package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/libralend/lending-core-go/lending"
)

func Test_Page_Validate(t *testing.T) {
	assert.NoError(t, lending.DefaultPage().Validate())
	assert.NoError(t, lending.Page{Number: 7, Size: lending.MaxPageSize}.Validate())

	assert.ErrorIs(t, lending.Page{Number: 0, Size: 10}.Validate(), lending.ErrInvalidPage)
	assert.ErrorIs(t, lending.Page{Number: 1, Size: 0}.Validate(), lending.ErrInvalidPage)
	assert.ErrorIs(t, lending.Page{Number: 1, Size: lending.MaxPageSize + 1}.Validate(), lending.ErrInvalidPage)
}

func Test_Page_Offset(t *testing.T) {
	assert.Equal(t, 0, lending.Page{Number: 1, Size: 10}.Offset())
	assert.Equal(t, 30, lending.Page{Number: 4, Size: 10}.Offset())
}

func Test_TotalPages(t *testing.T) {
	assert.Equal(t, 0, lending.TotalPages(0, 10))
	assert.Equal(t, 1, lending.TotalPages(1, 10))
	assert.Equal(t, 1, lending.TotalPages(10, 10))
	assert.Equal(t, 2, lending.TotalPages(11, 10))
	assert.Equal(t, 5, lending.TotalPages(41, 10))
}

func Test_BuildAuditEntry(t *testing.T) {
	now := time.Now().UTC()

	entry, err := lending.BuildAuditEntry("BorrowRecorded", now, []byte(`{"book_id":"x"}`))
	assert.NoError(t, err)
	assert.Equal(t, "BorrowRecorded", entry.EventType)

	_, err = lending.BuildAuditEntry("BorrowRecorded", now, []byte(`{not json`))
	assert.ErrorIs(t, err, lending.ErrInvalidAuditPayloadJSON)
}
