package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "PENDING", want: StatusPending},
		{in: "resolved", want: StatusResolved},
		{in: " In_Progress ", want: StatusInProgress},
		{in: "in progress", wantErr: true},
		{in: "closed", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStatus)
				assert.Contains(t, err.Error(), "PENDING, IN_PROGRESS, RESOLVED")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusInProgress, NormalizeStatus("In Progress"))
	assert.Equal(t, StatusPending, NormalizeStatus("pending"))
	assert.Equal(t, StatusResolved, NormalizeStatus(" resolved "))
	assert.Equal(t, StatusPending, NormalizeStatus("archived"))
	assert.Equal(t, StatusPending, NormalizeStatus(""))

	_, ok := LookupStatus("closed")
	assert.False(t, ok)
	st, ok := LookupStatus("in progress")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, st)
}

func TestStatus_DisplayText(t *testing.T) {
	assert.Equal(t, "Pending", StatusPending.DisplayText())
	assert.Equal(t, "In Progress", StatusInProgress.DisplayText())
	assert.Equal(t, "Resolved", StatusResolved.DisplayText())
	assert.Equal(t, "WHATEVER", Status("WHATEVER").DisplayText())
}

func TestSession_IsAdmin(t *testing.T) {
	var anon *Session
	assert.False(t, anon.IsAdmin())

	assert.True(t, (&Session{Scheme: SchemeToken, Authorities: []string{"ROLE_USER", AdminAuthority}}).IsAdmin())
	assert.False(t, (&Session{Scheme: SchemeToken, Authorities: []string{"ROLE_USER"}}).IsAdmin())
	assert.False(t, (&Session{Scheme: SchemeToken, Role: "admin"}).IsAdmin(), "role is ignored under token scheme")

	assert.True(t, (&Session{Scheme: SchemeLegacy, Role: "Admin"}).IsAdmin())
	assert.False(t, (&Session{Scheme: SchemeLegacy, Authorities: []string{AdminAuthority}}).IsAdmin())
}

func TestSession_CloneDoesNotShareAuthorities(t *testing.T) {
	s := &Session{Scheme: SchemeToken, Authorities: []string{"ROLE_USER"}}
	c := s.Clone()
	c.Authorities[0] = "ROLE_ADMIN"
	assert.Equal(t, "ROLE_USER", s.Authorities[0])
}

func TestAuthResult_DecodesBothAuthorityShapes(t *testing.T) {
	var plain AuthResult
	require.NoError(t, json.Unmarshal([]byte(`{"token":"t","username":"ann","authorities":["ROLE_ADMIN"]}`), &plain))
	assert.Equal(t, Authorities{"ROLE_ADMIN"}, plain.Authorities)

	var objects AuthResult
	require.NoError(t, json.Unmarshal([]byte(`{"token":"t","username":"ann","authorities":[{"authority":"ROLE_USER"},{"authority":"ROLE_ADMIN"}]}`), &objects))
	assert.Equal(t, Authorities{"ROLE_USER", "ROLE_ADMIN"}, objects.Authorities)
}

func TestLegacyUser_NumericID(t *testing.T) {
	var u LegacyUser
	require.NoError(t, json.Unmarshal([]byte(`{"id":17,"username":"bob","password":"pw","role":"user"}`), &u))
	assert.Equal(t, FlexID("17"), u.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","username":"bob"}`), &u))
	assert.Equal(t, FlexID("abc"), u.ID)
}

func TestIssue_Helpers(t *testing.T) {
	lat, lng := 1.5, 2.5
	i := Issue{ID: "7", Title: "Hole", Location: "Main st", Status: StatusPending, ReportedByID: "3"}
	assert.False(t, i.HasCoordinates())
	assert.Equal(t, "3", i.Reporter())

	i.Latitude, i.Longitude = &lat, &lng
	i.ReportedByName = "ann"
	assert.True(t, i.HasCoordinates())
	assert.Equal(t, "ann", i.Reporter())
	assert.Equal(t, "#7 [Pending] Hole (Main st)", i.String())
}
