package wardrobe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutfit_Validates(t *testing.T) {
	_, err := NewOutfit(item(1, Top), item(1, Shoes))
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = NewOutfit(item(1, Category("SCARF")))
	require.ErrorIs(t, err, ErrInvariantViolation)

	o, err := NewOutfit()
	require.NoError(t, err)
	assert.True(t, o.IsEmpty())
	for _, c := range Categories {
		assert.NotNil(t, o.Bucket(c))
	}
}

func TestOutfit_ItemsInDisplayOrder(t *testing.T) {
	o := MustOutfit(item(5, Shoes), item(2, Bottom), item(1, Top), item(9, Outerwear))
	assert.Equal(t, []int64{1, 2, 9, 5}, o.IDs())

	c, idx, ok := o.Locate(9)
	require.True(t, ok)
	assert.Equal(t, Outerwear, c)
	assert.Equal(t, 0, idx)

	_, _, ok = o.Locate(77)
	assert.False(t, ok)
}

func TestOutfit_CloneIsIndependent(t *testing.T) {
	o := sampleOutfit()
	dup := o.Clone()
	dup, _ = Remove(dup, 1)
	assert.Equal(t, 4, o.Len())
	assert.Equal(t, 3, dup.Len())
}

func TestOutfit_UnmarshalClothesForm(t *testing.T) {
	var o Outfit
	err := json.Unmarshal([]byte(`{"clothes":[
		{"id":4,"img":"shoe.png","type":"SHOES"},
		{"id":1,"img":"top.png","type":"top"}
	]}`), &o)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, o.IDs())
	assert.Equal(t, Top, o.Bucket(Top)[0].Category)
}

func TestOutfit_UnmarshalKeyedForm(t *testing.T) {
	var o Outfit
	err := json.Unmarshal([]byte(`{"TOP":[{"id":1,"img":"a.jpg"}],"BOTTOM":[{"id":2,"img":"b.jpg"}],"DRESS":null}`), &o)
	require.NoError(t, err)
	assert.Equal(t, []ClothingItem{{ID: 1, Image: "a.jpg", Category: Top}}, o.Bucket(Top))
	assert.Equal(t, []ClothingItem{{ID: 2, Image: "b.jpg", Category: Bottom}}, o.Bucket(Bottom))
	assert.Empty(t, o.Bucket(Dress))
}

func TestOutfit_UnmarshalRejectsMisfiledItem(t *testing.T) {
	var o Outfit
	err := json.Unmarshal([]byte(`{"TOP":[{"id":1,"img":"a.jpg","type":"SHOES"}]}`), &o)
	require.ErrorIs(t, err, ErrInvariantViolation)
}

func TestOutfit_MarshalRoundTripsThroughClothes(t *testing.T) {
	o := sampleOutfit()
	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"clothes"`)

	var back Outfit
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(o))
}

func TestCollection_NextCyclesBackToStart(t *testing.T) {
	outfits := []Outfit{
		MustOutfit(item(1, Top)),
		MustOutfit(item(2, Top)),
		MustOutfit(item(3, Top)),
	}
	c := NewCollection(outfits)
	require.Equal(t, 0, c.Index())
	for i := 0; i < len(outfits); i++ {
		c = c.Next()
	}
	assert.Equal(t, 0, c.Index())

	c = c.Prev()
	assert.Equal(t, 2, c.Index())
}

func TestCollection_Empty(t *testing.T) {
	c := NewCollection(nil)
	assert.Equal(t, -1, c.Index())
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, -1, c.Next().Index())
}

func TestCollection_ReplaceCurrentOnly(t *testing.T) {
	c := NewCollection([]Outfit{MustOutfit(item(1, Top)), MustOutfit(item(2, Top))}).Next()
	replaced := c.Replace(MustOutfit(item(9, Top)))

	cur, ok := replaced.Current()
	require.True(t, ok)
	assert.Equal(t, []int64{9}, cur.IDs())

	first, _ := replaced.At(0)
	assert.Equal(t, []int64{1}, first.IDs())

	orig, _ := c.Current()
	assert.Equal(t, []int64{2}, orig.IDs(), "Replace must not alias the source collection")
}

func TestRecommendationResponse_EndToEndFixture(t *testing.T) {
	var resp RecommendationResponse
	err := json.Unmarshal([]byte(`{"outfits":[{"TOP":[{"id":1,"img":"a.jpg"}],"BOTTOM":[{"id":2,"img":"b.jpg"}]}]}`), &resp)
	require.NoError(t, err)

	c := NewCollection(resp.Outfits)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Index())
	cur, _ := c.Current()
	require.Len(t, cur.Bucket(Top), 1)
	assert.Equal(t, int64(1), cur.Bucket(Top)[0].ID)
}
