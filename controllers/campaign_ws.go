package controller

import (
	"log"
	"time"

	"outreachcrm/config"
	"outreachcrm/models"

	"github.com/gofiber/websocket/v2"
)

// HandleCampaignProgressWS streams live campaign state to a client. The
// client sends the campaign id once; updates flow until the campaign
// reaches a terminal state or the connection drops.
func HandleCampaignProgressWS(c *websocket.Conn) {
	defer c.Close()

	var input struct {
		CampaignID uint `json:"campaign_id"`
	}
	if err := c.ReadJSON(&input); err != nil {
		log.Printf("Error reading JSON: %v", err)
		return
	}

	type progress struct {
		Status      string `json:"status"`
		CurrentStep int    `json:"current_step"`
		TotalSteps  int    `json:"total_steps"`
		SentCount   int    `json:"sent_count"`
		ReplyCount  int    `json:"reply_count"`
		PauseReason string `json:"pause_reason,omitempty"`
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var campaign models.Campaign
		if err := config.DB.First(&campaign, input.CampaignID).Error; err != nil {
			log.Printf("Campaign %d lookup failed: %v", input.CampaignID, err)
			return
		}

		var totalSteps int64
		config.DB.Model(&models.SequenceStep{}).
			Where("sequence_id = ?", campaign.SequenceID).Count(&totalSteps)

		update := progress{
			Status:      campaign.Status,
			CurrentStep: campaign.CurrentStep,
			TotalSteps:  int(totalSteps),
			SentCount:   campaign.SentCount,
			ReplyCount:  campaign.ReplyCount,
			PauseReason: campaign.PauseReason,
		}
		if err := c.WriteJSON(update); err != nil {
			log.Printf("Error writing JSON: %v", err)
			return
		}

		if campaign.IsTerminal() {
			return
		}
	}
}
