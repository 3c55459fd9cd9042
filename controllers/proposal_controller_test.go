package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lachong-dev/agiletech_backend/models"
)

// The staff update persists through staffEditFilter so that a customer
// response landing between the handler's read and write makes the stale
// edit fail instead of rewriting a locked proposal. The filter must refuse
// exactly the statuses EditableByStaff refuses.
func TestStaffEditFilterMirrorsEditableByStaff(t *testing.T) {
	id := primitive.NewObjectID()
	filter := staffEditFilter(id)
	assert.Equal(t, id, filter["_id"])

	statusFilter, ok := filter["status"].(bson.M)
	require.True(t, ok)
	excluded, ok := statusFilter["$nin"].([]models.ProposalStatus)
	require.True(t, ok)

	all := []models.ProposalStatus{
		models.ProposalDraft,
		models.ProposalSent,
		models.ProposalViewed,
		models.ProposalAccepted,
		models.ProposalRejected,
		models.ProposalNegotiating,
	}
	for _, status := range all {
		p := &models.Proposal{Status: status}
		if p.EditableByStaff() != nil {
			assert.Contains(t, excluded, status, "locked status %q must not match the write filter", status)
		} else {
			assert.NotContains(t, excluded, status, "editable status %q must match the write filter", status)
		}
	}
}
