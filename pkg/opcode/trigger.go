package opcode

// Trigger names the event that starts a script. A script's first block
// carries its trigger as the block type.
type Trigger string

const (
	// TriggerStart is delivered once when the player starts.
	TriggerStart Trigger = "when_run_button_click"
	// TriggerMouseClicked is delivered when the pointer button is pressed.
	TriggerMouseClicked Trigger = "mouse_clicked"
	// TriggerMouseClickCanceled is delivered when the pointer button is released.
	TriggerMouseClickCanceled Trigger = "mouse_click_canceled"
)

var triggers = map[Trigger]bool{
	TriggerStart:              true,
	TriggerMouseClicked:       true,
	TriggerMouseClickCanceled: true,
}

// IsTrigger reports whether name is a known trigger block type.
func IsTrigger(name string) bool {
	return triggers[Trigger(name)]
}
