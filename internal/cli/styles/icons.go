package styles

// Nerd Font icons (requires a Nerd Font to display correctly)
const (
	IconVersion   = "\uf02b" // tag
	IconGitBranch = "\ue725" // git branch
	IconCalendar  = "\uf073" // calendar
	IconGithub    = "\uf09b" // github
	IconGo        = "\ue627" // go gopher

	IconCheck   = "\uf00c" // check
	IconX       = "\uf00d" // x
	IconWarning = "\uf071" // warning
	IconInfo    = "\uf05a" // info
	IconVideo   = "\uf03d" // video camera
	IconChip    = "\uf2db" // microchip
	IconConfig  = "\ue615" // config
	IconRefresh = "\uf021" // refresh
	IconFilm    = "\uf008" // film
)
