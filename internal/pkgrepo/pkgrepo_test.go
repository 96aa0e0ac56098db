package pkgrepo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
)

func TestQueryString(t *testing.T) {
	tests := map[string]struct {
		query  pkgrepo.Query
		expStr string
		expID  string
	}{
		"Only name should render the name.": {
			query:  pkgrepo.Query{Name: "htop"},
			expStr: "Name (htop)",
		},

		"Name and arch should skip the version.": {
			query:  pkgrepo.Query{Name: "htop", Arch: model.ArchARM64},
			expStr: "Name (htop), Architecture (arm64)",
		},

		"A complete query should render the full version.": {
			query:  pkgrepo.Query{Name: "htop", Version: "3.3.0", PatchSuffix: "1", Arch: model.ArchAMD64},
			expStr: "Name (htop), Version (3.3.0leios1), Architecture (amd64)",
			expID:  "htop_3.3.0leios1_amd64",
		},

		"A version already carrying the patch suffix should not be suffixed twice.": {
			query:  pkgrepo.Query{Name: "htop", Version: "3.3.0leios2", PatchSuffix: "2", Arch: model.ArchAMD64},
			expStr: "Name (htop), Version (3.3.0leios2), Architecture (amd64)",
			expID:  "htop_3.3.0leios2_amd64",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(test.expStr, test.query.String())
			assert.Equal(test.expID != "", test.query.Complete())
			if test.expID != "" {
				assert.Equal(test.expID, test.query.Identifier())
			}
		})
	}
}

func TestQueryValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(pkgrepo.Query{Name: "htop"}.Validate())
	assert.ErrorIs(pkgrepo.Query{}.Validate(), model.ErrNotValid)
	assert.ErrorIs(pkgrepo.Query{Name: "htop", Arch: "s390x"}.Validate(), model.ErrNotValid)
}
