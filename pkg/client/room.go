package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"huddle/pkg/model"
)

// RoomClient is a typed HTTP client for the rooms API.
type RoomClient struct {
	httpClient *HttpClient
}

func NewRoomClient(baseURL string) *RoomClient {
	return &RoomClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *RoomClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/rooms", body)
}

func (c *RoomClient) GetAll() (*Response, error) {
	return c.httpClient.GET("/api/v1/rooms")
}

func (c *RoomClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/rooms/" + url.PathEscape(id))
}

func (c *RoomClient) Delete(id string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/rooms/" + url.PathEscape(id))
}

func (c *RoomClient) GetBookings(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/rooms/" + url.PathEscape(id) + "/bookings")
}

func (c *RoomClient) DecodeRoom(resp *Response) (*model.Room, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode room wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var room model.Room
	if err := json.Unmarshal(wrapper.Data, &room); err != nil {
		return nil, fmt.Errorf("could not decode room json:\n%+v\n%s", resp.ToString(), err)
	}

	return &room, nil
}

func (c *RoomClient) DecodeRooms(resp *Response) ([]*model.Room, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode rooms wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var rooms []*model.Room
	if err := json.Unmarshal(wrapper.Data, &rooms); err != nil {
		return nil, fmt.Errorf("could not decode room list:\n%+v\n%s", resp.ToString(), err)
	}

	return rooms, nil
}
