package service

import (
	"context"
	"fmt"
	"time"

	"healthscope/internal/model"
)

const nutritionKnowledge = `## HYPER-LOCAL NUTRITION KNOWLEDGE BASE (Use this for recommendations):

1.  **IRON / ANEMIA FIXES (BLR Local):**
    - Moringa Leaves (Nuggesoppu): Excellent source of Iron and Folate.
    - Sesame Seeds (Til/Ellu): High iron content, easy to add to meals.
    - Dates & Raisins (Dry Fruit): Quick, high-density iron boost.

2.  **PROTEIN / MUSCLE (BLR Local):**
    - Horse Gram (Kulthi/Huruli): Highest protein legume, good for tissue repair.
    - Peanuts & Groundnuts: Affordable, readily available lean protein source.
    - Tofu/Paneer (Local): Dairy and soy options for immune cell building.

3.  **CALCIUM / BONE HEALTH (BLR Local):**
    - Ragi (Finger Millet): Primary local source of calcium, best absorbed.
    - Curd/Yogurt: General dairy option.

4.  **VITAMIN C / IMMUNITY (BLR Local):**
    - Amla (Indian Gooseberry): Potent antioxidant, boosts iron absorption.
    - Guava (Amrood): High Vitamin C content.
    - Bell Peppers (Local varieties): Good source of immune support.

5.  **SUSTAINED ENERGY / FIBER (BLR Local):**
    - Bajra (Pearl Millet) / Jowar (Sorghum): Slow-releasing complex carbs for sustained energy.
    - Brown Rice & Whole Grains (Oats/Wheat): Gut health and B vitamins.`

const agentSystemTemplate = `You are **HealthScope Agent**, a friendly AI health companion in %[1]s.
Your style is warm, natural, and conversational, like a helpful human guide.

[System Time: %[2]s]

## CONTEXT YOU HAVE:
- Medical Summary: %[3]s
- User Location: %[1]s

## HOW TO BEHAVE:
1. **If the user sends casual messages** like "hi", "hello", "bye", "thanks", "perfect", "okay",
   reply casually and naturally. Keep it short and friendly.
   (Example: "Hi! How can I help?", "Glad it helps!", "Take care!")

2. **If the user asks a real health question**
   switch into helpful health assistant mode. Answer in pointers, using the medical summary.

3. **If the user asks for prices, shops, markets, doctors, clinics, or booking links**
   you MUST use Google Search to fetch real, current info. Never guess or estimate.

4. **For nutrition guidance**, use the hyper-local Karnataka knowledge base below.

5. **Keep answers short** (max 3 sentences) unless the user wants details.

6. **Never ask for their location**: you already know it's %[1]s.

## LOCAL NUTRITION KNOWLEDGE:
%[4]s`

// Conversation is the model-facing history of one session.
type Conversation struct {
	System string
	Turns  []model.ChatTurn
}

func (c *Conversation) Reset() {
	c.System = ""
	c.Turns = nil
}

type Agent struct {
	ai    Generator
	model string
	now   func() time.Time
}

func NewAgent(ai Generator, model string) *Agent {
	return &Agent{ai: ai, model: model, now: time.Now}
}

func (a *Agent) SystemContext(summary, location string) string {
	return fmt.Sprintf(agentSystemTemplate, location, a.now().Format("2006-01-02 15:04:05"), summary, nutritionKnowledge)
}

// Reply sends message with the conversation so far and records both turns
// once the model has answered. The caller owns conv and must serialise
// access to it.
func (a *Agent) Reply(ctx context.Context, conv *Conversation, message, summary, location string) (string, error) {
	system := conv.System
	if system == "" {
		system = a.SystemContext(summary, location)
	}

	msgs := make([]Message, 0, len(conv.Turns)+1)
	for _, t := range conv.Turns {
		role := "user"
		if t.Role == model.RoleAssistant {
			role = "model"
		}
		msgs = append(msgs, Message{Role: role, Text: t.Content})
	}
	msgs = append(msgs, Message{Role: "user", Text: message})

	reply, err := a.ai.Generate(ctx, Prompt{
		Model:        a.model,
		System:       system,
		Messages:     msgs,
		GoogleSearch: true,
	})
	if err != nil {
		return "", fmt.Errorf("chat model: %w", err)
	}

	conv.System = system
	conv.Turns = append(conv.Turns,
		model.ChatTurn{Role: model.RoleUser, Content: message},
		model.ChatTurn{Role: model.RoleAssistant, Content: reply},
	)
	return reply, nil
}
