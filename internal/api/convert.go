package api

import (
	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names follow the JSON names of the chat types.

func UserValue(u chat.User) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"id":     structpb.NewStringValue(u.ID),
		"name":   structpb.NewStringValue(u.DisplayName),
		"avatar": structpb.NewStringValue(u.AvatarRef),
	}})
}

func UserFromValue(v *structpb.Value) chat.User {
	f := v.GetStructValue().GetFields()
	return chat.User{
		ID:          f["id"].GetStringValue(),
		DisplayName: f["name"].GetStringValue(),
		AvatarRef:   f["avatar"].GetStringValue(),
	}
}

func UsersList(users []chat.User) *structpb.ListValue {
	values := make([]*structpb.Value, len(users))
	for i, u := range users {
		values[i] = UserValue(u)
	}
	return &structpb.ListValue{Values: values}
}

func UsersFromList(l *structpb.ListValue) []chat.User {
	out := make([]chat.User, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		out = append(out, UserFromValue(v))
	}
	return out
}

func MessageValue(m chat.Message) *structpb.Value {
	fields := map[string]*structpb.Value{
		"id":        structpb.NewStringValue(m.ID),
		"from":      structpb.NewStringValue(m.SenderID),
		"to":        structpb.NewStringValue(m.RecipientID),
		"text":      structpb.NewStringValue(m.Text),
		"timestamp": structpb.NewNumberValue(float64(m.SentAtEpochMs)),
	}
	if p := m.LinkPreview; p != nil {
		fields["linkPreview"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"title":       structpb.NewStringValue(p.Title),
			"description": structpb.NewStringValue(p.Description),
			"image":       structpb.NewStringValue(p.ImageRef),
			"domain":      structpb.NewStringValue(p.Domain),
		}})
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

func MessageFromValue(v *structpb.Value) chat.Message {
	f := v.GetStructValue().GetFields()
	m := chat.Message{
		ID:            f["id"].GetStringValue(),
		SenderID:      f["from"].GetStringValue(),
		RecipientID:   f["to"].GetStringValue(),
		Text:          f["text"].GetStringValue(),
		SentAtEpochMs: int64(f["timestamp"].GetNumberValue()),
	}
	if pv, ok := f["linkPreview"]; ok && pv.GetStructValue() != nil {
		pf := pv.GetStructValue().GetFields()
		m.LinkPreview = &chat.LinkPreview{
			Title:       pf["title"].GetStringValue(),
			Description: pf["description"].GetStringValue(),
			ImageRef:    pf["image"].GetStringValue(),
			Domain:      pf["domain"].GetStringValue(),
		}
	}
	return m
}

func MessagesList(msgs []chat.Message) *structpb.ListValue {
	values := make([]*structpb.Value, len(msgs))
	for i, m := range msgs {
		values[i] = MessageValue(m)
	}
	return &structpb.ListValue{Values: values}
}

func MessagesFromList(l *structpb.ListValue) []chat.Message {
	out := make([]chat.Message, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		out = append(out, MessageFromValue(v))
	}
	return out
}

// payloadValue converts a bus event payload for the wire. Unknown payloads
// become null.
func payloadValue(payload any) *structpb.Value {
	switch p := payload.(type) {
	case chat.Message:
		return MessageValue(p)
	case []chat.User:
		return structpb.NewListValue(UsersList(p))
	case string:
		return structpb.NewStringValue(p)
	case status.StatusChange:
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"from": structpb.NewStringValue(string(p.From)),
			"to":   structpb.NewStringValue(string(p.To)),
		}})
	default:
		return structpb.NewNullValue()
	}
}
