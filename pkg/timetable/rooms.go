package timetable

import "strings"

// BuildingGroup is the ordered room list of one building.
type BuildingGroup struct {
	Building string `json:"building"`
	Rooms    []Room `json:"rooms"`
}

// RoomGroups maps buildings to rooms in first-seen order.
type RoomGroups struct {
	Groups []BuildingGroup
}

// GroupRooms groups rooms by building. An empty building or AllBuildings keeps
// every building; any other value keeps only that building.
func GroupRooms(rooms []Room, building string) RoomGroups {
	filter := strings.TrimSpace(building)
	if strings.EqualFold(filter, AllBuildings) {
		filter = ""
	}
	positions := make(map[string]int)
	groups := make([]BuildingGroup, 0)
	for _, room := range rooms {
		if filter != "" && room.Building != filter {
			continue
		}
		idx, ok := positions[room.Building]
		if !ok {
			idx = len(groups)
			positions[room.Building] = idx
			groups = append(groups, BuildingGroup{Building: room.Building})
		}
		groups[idx].Rooms = append(groups[idx].Rooms, room)
	}
	return RoomGroups{Groups: groups}
}

// Rooms returns the rooms of building, or an empty slice when it is not listed.
func (g RoomGroups) Rooms(building string) []Room {
	for _, group := range g.Groups {
		if group.Building == building {
			return group.Rooms
		}
	}
	return []Room{}
}

// Buildings lists the included buildings in order.
func (g RoomGroups) Buildings() []string {
	names := make([]string, 0, len(g.Groups))
	for _, group := range g.Groups {
		names = append(names, group.Building)
	}
	return names
}

// Columns flattens the groups into grid columns.
func (g RoomGroups) Columns() []Room {
	var total int
	for _, group := range g.Groups {
		total += len(group.Rooms)
	}
	columns := make([]Room, 0, total)
	for _, group := range g.Groups {
		columns = append(columns, group.Rooms...)
	}
	return columns
}
