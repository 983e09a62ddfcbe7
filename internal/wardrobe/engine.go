package wardrobe

import "fmt"

// Swap replaces the item with oldID inside target's bucket with newItem,
// keeping its index. When oldID is not in that bucket the outfit comes back
// unchanged with found=false. newItem must belong to target.
func Swap(o Outfit, target Category, oldID int64, newItem ClothingItem) (Outfit, bool, error) {
	if !target.Valid() {
		return o, false, NewError(KindInvariantViolation, "swap item", fmt.Errorf("unknown category %q", target))
	}
	if newItem.Category != target {
		return o, false, NewError(KindInvariantViolation, "swap item",
			fmt.Errorf("item %d is %s, cannot fill %s", newItem.ID, newItem.Category, target))
	}

	bucket := o.Bucket(target)
	idx := -1
	for i, item := range bucket {
		if item.ID == oldID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return o, false, nil
	}

	if newItem.ID != oldID {
		if c, _, exists := o.Locate(newItem.ID); exists {
			return o, true, NewError(KindDuplicateID, "swap item",
				fmt.Errorf("item %d already in %s", newItem.ID, c))
		}
	}

	bucket[idx] = newItem
	return o.withBucket(target, bucket), true, nil
}

// Add appends item to its own category's bucket.
func Add(o Outfit, item ClothingItem) (Outfit, error) {
	if !item.Category.Valid() {
		return o, NewError(KindInvariantViolation, "add item", fmt.Errorf("unknown category %q", item.Category))
	}
	if c, _, exists := o.Locate(item.ID); exists {
		return o, NewError(KindDuplicateID, "add item", fmt.Errorf("item %d already in %s", item.ID, c))
	}
	bucket := append(o.Bucket(item.Category), item)
	return o.withBucket(item.Category, bucket), nil
}

// Remove deletes the first item with id, scanning categories in display
// order. A missing id returns the outfit unchanged with found=false.
func Remove(o Outfit, id int64) (Outfit, bool) {
	c, idx, ok := o.Locate(id)
	if !ok {
		return o, false
	}
	bucket := o.Bucket(c)
	bucket = append(bucket[:idx], bucket[idx+1:]...)
	return o.withBucket(c, bucket), true
}
