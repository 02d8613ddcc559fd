package model

// Seed data used when no snapshot exists yet. One nominal season of races and
// the initial roster.
var DefaultEvents = []EventDraft{
	{Name: "ММ", Date: "01.03"},
	{Name: "МПМ", Date: "02.03"},
	{Name: "БН", Date: "03.03"},
	{Name: "RunIT", Date: "04.03"},
	{Name: "КМ", Date: "05.03"},
	{Name: "OGr", Date: "06.03"},
	{Name: "Vgr", Date: "07.03"},
}

var DefaultUsers = []UserDraft{
	{Name: "Андрей", Gender: GenderMale},
	{Name: "Аня", Gender: GenderFemale},
	{Name: "Саша", Gender: GenderMale},
	{Name: "Вася", Gender: GenderMale},
	{Name: "Ира", Gender: GenderFemale},
	{Name: "Лида", Gender: GenderFemale},
	{Name: "Женя", Gender: GenderMale},
	{Name: "Виталя", Gender: GenderMale},
}
