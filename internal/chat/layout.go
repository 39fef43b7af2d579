package chat

const inputMaxHeight = 6
const inputPadding = 1
const sidebarMaxWidth = 26

func (m *Model) sidebarWidth() int {
	if !m.sidebarOpen {
		return 0
	}
	width := sidebarMaxWidth
	if m.width > 0 && width > m.width/3 {
		width = m.width / 3
	}
	return width
}

func (m *Model) mainWidth() int {
	if m.width == 0 {
		return 0
	}
	width := m.width - m.sidebarWidth()
	if width < 1 {
		width = 1
	}
	return width
}

func (m *Model) toggleSidebar() {
	m.sidebarOpen = !m.sidebarOpen
	if !m.sidebarOpen {
		m.focusSidebar(false)
	}
	m.resize()
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	width := m.mainWidth()
	inputWidth := width - inputPadding
	if inputWidth < 1 {
		inputWidth = 1
	}
	m.input.SetWidth(inputWidth)
	lineCount := m.input.LineCount()
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > inputMaxHeight {
		lineCount = inputMaxHeight
	}
	m.input.SetHeight(lineCount)
	inputHeight := m.input.Height() + 1

	headerHeight := 1
	statusHeight := 1
	marginHeight := 1 // blank, or the new-messages bar
	m.viewport.Width = width
	m.viewport.Height = m.height - headerHeight - inputHeight - statusHeight - marginHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	if m.initialScroll {
		m.refreshViewport(true)
		m.initialScroll = false
		return
	}
	m.refreshViewport(false)
}
